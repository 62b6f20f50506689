package config

// RabbitMQ with an empty URL disables job event publishing
type RabbitMQ struct {
	URL       string
	QueueName string
}

func (r RabbitMQ) Enabled() bool {
	return r.URL != ""
}
