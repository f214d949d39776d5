package tasks

import "github.com/imrishuroy/go-idempotent-todo/internal/store"

// dueDateMax sorts after every task id, closing a due date range on the
// last task of the end date.
const dueDateMax = "~"

func taskKey(userID, taskID string) store.Key {
	return store.Key{PK: store.PrefixTask + userID, SK: store.PrefixTask + taskID}
}

// indexPartition is the partition of every secondary index: all listings
// stay inside one user's items.
func indexPartition(userID string) string { return store.PrefixUser + userID }

func statusPrefix(status string) string     { return store.PrefixStatus + status + "#" }
func priorityPrefix(priority string) string { return store.PrefixPriority + priority + "#" }
func categoryPrefix(category string) string { return store.PrefixCategory + category + "#" }
func dueDatePrefix(date string) string      { return store.PrefixDueDate + date + "#" }

func toItem(t Task) taskItem {
	key := taskKey(t.UserID, t.TaskID)
	part := indexPartition(t.UserID)

	it := taskItem{
		PK:          key.PK,
		SK:          key.SK,
		GSI1PK:      part,
		GSI1SK:      statusPrefix(t.Status) + t.TaskID,
		GSI3PK:      part,
		GSI3SK:      priorityPrefix(t.Priority) + t.TaskID,
		EntityType:  store.EntityTask,
		TaskID:      t.TaskID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != "" {
		it.GSI2PK = part
		it.GSI2SK = dueDatePrefix(t.DueDate) + t.TaskID
	}
	if t.Category != "" {
		it.GSI4PK = part
		it.GSI4SK = categoryPrefix(t.Category) + t.TaskID
	}
	if t.CompletedAt != nil {
		it.CompletedAt = *t.CompletedAt
	}
	return it
}

func (it taskItem) toTask() Task {
	t := Task{
		TaskID:      it.TaskID,
		UserID:      it.UserID,
		Title:       it.Title,
		Description: it.Description,
		Status:      it.Status,
		Priority:    it.Priority,
		Category:    it.Category,
		DueDate:     it.DueDate,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if it.CompletedAt != 0 {
		completed := it.CompletedAt
		t.CompletedAt = &completed
	}
	return t
}
