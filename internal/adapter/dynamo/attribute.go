package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pscheid92/voteban/internal/platform/schema"
)

func toAttributeValues(item schema.Item) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for name, a := range item {
		switch {
		case a.S != nil:
			out[name] = &types.AttributeValueMemberS{Value: *a.S}
		case a.N != nil:
			out[name] = &types.AttributeValueMemberN{Value: *a.N}
		case len(a.NS) > 0:
			out[name] = &types.AttributeValueMemberNS{Value: a.NS}
		}
	}
	return out
}

// fromAttributeValues keeps only the kinds a schema can describe.
func fromAttributeValues(avs map[string]types.AttributeValue) schema.Item {
	item := make(schema.Item, len(avs))
	for name, av := range avs {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			item[name] = schema.Attr{S: &v.Value}
		case *types.AttributeValueMemberN:
			item[name] = schema.Attr{N: &v.Value}
		case *types.AttributeValueMemberNS:
			item[name] = schema.Attr{NS: v.Value}
		}
	}
	return item
}
