package testing

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/vocal-separator/src/shared/config"
	"github.com/veedubyou/vocal-separator/src/shared/lib/dynamo"
)

func MakeTestDB(testRegion string) dynamolib.DynamoDBWrapper {
	dbSession := session.Must(session.NewSession())

	localDynamo := config.LocalDynamo{
		AccessKeyID:     DynamoAccessKeyID,
		SecretAccessKey: DynamoSecretAccessKey,
		Region:          testRegion,
		Host:            DynamoDBHost,
	}

	db := dynamo.New(dbSession, localDynamo.AWSConfig().WithMaxRetries(0))
	return dynamolib.NewDynamoDBWrapper(db)
}

// DynamoAvailable tells suites whether a local DynamoDB is running to test against
func DynamoAvailable(db dynamolib.DynamoDBWrapper) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := db.ListTables().AllWithContext(ctx)
	return err == nil
}

func ResetDB(db dynamolib.DynamoDBWrapper) {
	DeleteAllTables(db)
}

func AfterSuiteDB(db dynamolib.DynamoDBWrapper) {
	DeleteAllTables(db)
}

func DeleteAllTables(db dynamolib.DynamoDBWrapper) {
	tableResults := db.ListTables()
	tableNames := ExpectSuccess(tableResults.All())

	for _, tableName := range tableNames {
		err := db.Table(tableName).DeleteTable().Run()
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}
}
