package dynamolib

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/guregu/dynamo"
)

func NewDynamoDBWrapper(db *dynamo.DB) DynamoDBWrapper {
	return DynamoDBWrapper{DB: db}
}

type DynamoDBWrapper struct {
	*dynamo.DB
}

// EnsureTable creates the table described by the dynamo tags of `from` when it doesn't exist yet
func (d DynamoDBWrapper) EnsureTable(ctx context.Context, tableName string, from any) error {
	tableNames, err := d.ListTables().AllWithContext(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to list tables")
	}

	for _, name := range tableNames {
		if name == tableName {
			return nil
		}
	}

	err = d.CreateTable(tableName, from).
		OnDemand(true).
		RunWithContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "Failed to create table %s", tableName)
	}

	return nil
}
