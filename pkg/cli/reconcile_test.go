package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"

	"github.com/clusterops/nodectl/pkg/desired"
	"github.com/clusterops/nodectl/pkg/report"
)

// stubReconcile builds the reconcile command with its action replaced, so
// flag parsing and state assembly can be exercised without a cluster.
func stubReconcile(action cli.ActionFunc) *cli.Command {
	cmd := reconcileCmd()
	cmd.Action = action
	return &cli.Command{Name: "nodectl", Commands: []*cli.Command{cmd}}
}

func TestStateFromFlags(t *testing.T) {
	var state desired.State
	root := stubReconcile(func(ctx context.Context, cmd *cli.Command) error {
		var err error
		state, err = stateFromFlags(cmd)
		return err
	})

	err := root.Run(context.Background(), []string{
		"nodectl", "reconcile",
		"--app-host", "logs.example.com",
		"--app-port", "9200",
		"--ops-host", "ops-logs.example.com",
		"--ops-port", "9300",
		"--node-selector", "logging-infra-fluentd=true",
		"--nodes", "node-1",
		"--nodes", "node-2",
		"--runtime-version", "1.9.5",
	})
	assert.NoError(t, err)

	assert.Equal(t, "logs.example.com", state.Logging.AppHost)
	assert.Equal(t, 9200, state.Logging.AppPort)
	assert.Equal(t, desired.Selector{Key: "logging-infra-fluentd", Value: "true"}, state.NodeSelector)
	assert.Equal(t, []string{"node-1", "node-2"}, state.Nodes)
	assert.Equal(t, "1.9.5", state.RuntimeVersion)

	// Defaults survive when flags are not given.
	assert.Equal(t, desired.ModeInstall, state.Mode)
	assert.Equal(t, "origin", state.DeploymentType)

	// With destinations and targets set, the assembled state validates.
	assert.NoError(t, state.Validate())
}

func TestStateFromFlagsRejectsTwoSelectorKeys(t *testing.T) {
	root := stubReconcile(func(ctx context.Context, cmd *cli.Command) error {
		_, err := stateFromFlags(cmd)
		return err
	})

	err := root.Run(context.Background(), []string{
		"nodectl", "reconcile",
		"--node-selector", "a=1,b=2",
	})
	assert.Error(t, err)
}

func TestParseOutputFormat(t *testing.T) {
	var format report.Format
	root := stubReconcile(func(ctx context.Context, cmd *cli.Command) error {
		var err error
		format, err = parseOutputFormat(cmd)
		return err
	})

	assert.NoError(t, root.Run(context.Background(), []string{"nodectl", "reconcile", "--format", "table"}))
	assert.Equal(t, report.FormatTable, format)

	assert.Error(t, root.Run(context.Background(), []string{"nodectl", "reconcile", "--format", "xml"}))
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug"))
	assert.NoError(t, setupLogging("info"))
	assert.Error(t, setupLogging("chatty"))
}
