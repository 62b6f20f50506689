package dev

import "github.com/veedubyou/vocal-separator/src/shared/config"

// DynamoDB
const (
	DynamoAccessKeyID     = "local"
	DynamoSecretAccessKey = "local"
	DynamoDBHost          = "http://localhost:8001"
	DynamoDBRegion        = "localhost"
)

var DynamoConfig = config.LocalDynamo{
	AccessKeyID:     DynamoAccessKeyID,
	SecretAccessKey: DynamoSecretAccessKey,
	Region:          DynamoDBRegion,
	Host:            DynamoDBHost,
}

// RabbitMQ
const (
	RabbitMQHost      = "amqp://localhost:5672"
	RabbitMQQueueName = "vocal-separator-jobs-dev"
)

// Separation
const (
	DemucsModel            = "htdemucs"
	SeparationTimeoutSecs  = 300
	Port                   = ":8000"
	WorkingDirRelativePath = "/src/server/wd/separate"
	OutputDirRelativePath  = "/src/server/wd/outputs"
)
