package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/mock"
)

// MockDynamoDBClient provides a mock implementation of the DynamoDB surface
// the record provider consumes.
//
// Example usage:
//
//	client := new(mocks.MockDynamoDBClient)
//	client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
//		Return(&dynamodb.GetItemOutput{}, nil)
type MockDynamoDBClient struct {
	mock.Mock
}

// GetItem mocks the DynamoDB GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.GetItemOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.GetItemOutput")
	}
	return output, args.Error(1)
}
