package env

import "github.com/veedubyou/vocal-separator/src/shared/config/envvar"

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Test        Environment = "test"
)

func Get() Environment {
	environment := envvar.MustGet(envvar.ENVIRONMENT)

	switch environment {
	case "production":
		return Production
	case "development":
		return Development
	case "test":
		return Test
	default:
		panic("Invalid environment is set")
	}
}

// IsProduction doesn't require the environment to be set, for code paths shared with tests
func IsProduction() bool {
	return envvar.GetOrDefault(envvar.ENVIRONMENT, "") == string(Production)
}
