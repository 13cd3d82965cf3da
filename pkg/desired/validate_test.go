package desired

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validState() State {
	s := Default()
	s.Logging = Logging{
		AppHost: "logs.example.com",
		AppPort: 9200,
		OpsHost: "ops-logs.example.com",
		OpsPort: 9200,
	}
	s.NodeSelector = Selector{Key: "logging-infra-fluentd", Value: "true"}
	s.Nodes = []string{"node-1.example.com"}
	return s
}

func TestValidateOk(t *testing.T) {
	assert.NoError(t, validState().Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	s := validState()
	s.Mode = "reinstall"

	err := s.Validate()
	var precond *PreconditionError
	if assert.True(t, errors.As(err, &precond)) {
		assert.Equal(t, "mode", precond.Field)
	}
}

func TestValidateRejectsBadDeploymentType(t *testing.T) {
	s := validState()
	s.DeploymentType = "orgin"

	err := s.Validate()
	var precond *PreconditionError
	if assert.True(t, errors.As(err, &precond)) {
		assert.Equal(t, "deploymentType", precond.Field)
		assert.Contains(t, precond.Reason, `did you mean "origin"?`)
	}
}

func TestValidateRequiresDestinations(t *testing.T) {
	s := validState()
	s.Logging.OpsHost = ""

	err := s.Validate()
	var precond *PreconditionError
	if assert.True(t, errors.As(err, &precond)) {
		assert.Equal(t, "logging.opsHost", precond.Field)
	}

	s = validState()
	s.Logging.AppPort = 0
	assert.Error(t, s.Validate())
}

func TestValidateRejectsAllMixedWithNames(t *testing.T) {
	s := validState()
	s.Nodes = []string{"all", "node-1.example.com"}
	assert.Error(t, s.Validate())

	s.Nodes = []string{"all"}
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsBadRegistry(t *testing.T) {
	s := validState()
	s.Registries.Insecure = []string{"registry with spaces"}

	err := s.Validate()
	var precond *PreconditionError
	if assert.True(t, errors.As(err, &precond)) {
		assert.Equal(t, "registries.insecure", precond.Field)
	}
}

func TestValidateAcceptsRegistryWithPort(t *testing.T) {
	s := validState()
	s.Registries.Added = []string{"registry.example.com:5000"}
	assert.NoError(t, s.Validate())
}

func TestValidateCredentials(t *testing.T) {
	s := validState()
	s.Credentials = &Credentials{Registry: "registry.example.com"}
	assert.Error(t, s.Validate())

	s.Credentials = &Credentials{
		Registry: "registry.example.com",
		Username: "svc-push",
		Password: "hunter2",
	}
	assert.NoError(t, s.Validate())
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("region=infra")
	assert.NoError(t, err)
	assert.Equal(t, Selector{Key: "region", Value: "infra"}, sel)

	// Two keys is a conflict, not a merge.
	_, err = ParseSelector("region=infra,zone=east")
	var precond *PreconditionError
	assert.True(t, errors.As(err, &precond))

	_, err = ParseSelector("region")
	assert.Error(t, err)
}
