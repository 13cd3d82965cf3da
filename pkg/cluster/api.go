/*
Copyright © 2026 ClusterOps Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package cluster is the reconciler's view of the cluster control plane:
// provisioning the logging-agent workload and its RBAC, and querying and
// labeling nodes during rollout.
package cluster

import "context"

// API is the narrow control-plane surface the reconciler consumes. The
// production implementation wraps client-go; tests use the fake clientset.
type API interface {
	// CreateServiceAccount ensures the named service account exists.
	CreateServiceAccount(ctx context.Context, name string) error

	// GrantRole binds an existing (cluster) role to a service account.
	// Scope is a namespace, or ScopeCluster for a cluster-wide grant.
	GrantRole(ctx context.Context, serviceAccount, role, scope string) error

	// ApplyConfigMap creates or updates a ConfigMap carrying the rendered
	// configuration artifacts.
	ApplyConfigMap(ctx context.Context, name string, files map[string]string) error

	// ApplySecret creates or updates a Secret carrying the credential
	// bundle (CA, key, cert).
	ApplySecret(ctx context.Context, name string, files map[string][]byte) error

	// ApplyDaemonSet creates or updates the logging-agent DaemonSet.
	ApplyDaemonSet(ctx context.Context, spec DaemonSetSpec) error

	// ListNodes returns the names of every node in the cluster.
	ListNodes(ctx context.Context) ([]string, error)

	// LabelNode sets a label on the node.
	LabelNode(ctx context.Context, name, key, value string) error

	// GetNodeReadiness reports whether the node's Ready condition is true.
	GetNodeReadiness(ctx context.Context, name string) (bool, error)
}

// ScopeCluster selects a cluster-wide role grant.
const ScopeCluster = "cluster"

// DaemonSetSpec is what the reconciler decides about the agent workload;
// manifest assembly stays inside this package.
type DaemonSetSpec struct {
	Name           string
	Image          string
	ServiceAccount string

	// NodeSelector places the agent only on labeled nodes.
	NodeSelector map[string]string

	// ConfigMapName and SecretName are mounted into the agent pod.
	ConfigMapName string
	SecretName    string
}
