package memeddb

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// DynamoDBAPI returns a DynamoDB client, pointed at DDBOpts.Endpoint when set.
func DynamoDBAPI(s *session.Session) dynamodbiface.DynamoDBAPI {
	if DDBOpts.Endpoint != "" {
		return dynamodb.New(s, aws.NewConfig().WithEndpoint(DDBOpts.Endpoint))
	}
	return dynamodb.New(s)
}
