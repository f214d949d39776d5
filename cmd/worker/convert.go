package main

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
)

// toPlain converts a stream attribute value to a JSON-friendly value.
// Numbers stay json.Number so no precision is lost.
func toPlain(av events.DynamoDBAttributeValue) any {
	switch av.DataType() {
	case events.DataTypeString:
		return av.String()
	case events.DataTypeNumber:
		return json.Number(av.Number())
	case events.DataTypeBoolean:
		return av.Boolean()
	case events.DataTypeBinary:
		return av.Binary()
	case events.DataTypeMap:
		return imageToPlain(av.Map())
	case events.DataTypeList:
		list := av.List()
		out := make([]any, 0, len(list))
		for _, v := range list {
			out = append(out, toPlain(v))
		}
		return out
	case events.DataTypeStringSet:
		return av.StringSet()
	case events.DataTypeNumberSet:
		set := av.NumberSet()
		out := make([]json.Number, 0, len(set))
		for _, n := range set {
			out = append(out, json.Number(n))
		}
		return out
	case events.DataTypeBinarySet:
		return av.BinarySet()
	default:
		return nil
	}
}

func imageToPlain(image map[string]events.DynamoDBAttributeValue) map[string]any {
	if len(image) == 0 {
		return nil
	}
	out := make(map[string]any, len(image))
	for k, v := range image {
		out[k] = toPlain(v)
	}
	return out
}
