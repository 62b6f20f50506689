package config

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

// Dynamo is optional: a nil Dynamo config keeps job records in memory
type Dynamo interface {
	AWSConfig() *aws.Config
}

var _ Dynamo = ProdDynamo{}

type ProdDynamo struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

func (p ProdDynamo) AWSConfig() *aws.Config {
	return aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials(p.AccessKeyID, p.SecretAccessKey, "")).
		WithRegion(p.Region)
}

var _ Dynamo = LocalDynamo{}

type LocalDynamo struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Host            string
}

func (l LocalDynamo) AWSConfig() *aws.Config {
	return aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials(l.AccessKeyID, l.SecretAccessKey, "")).
		WithRegion(l.Region).
		WithEndpoint(l.Host)
}
