package cluster

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

const testNamespace = "logging"

func readyNode(name string, ready bool) *corev1.Node {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: status},
			},
		},
	}
}

func TestCreateServiceAccountIdempotent(t *testing.T) {
	clientset := fake.NewClientset()
	c := New(clientset, testNamespace)
	ctx := context.Background()

	if err := c.CreateServiceAccount(ctx, "node-agent"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := c.CreateServiceAccount(ctx, "node-agent"); err != nil {
		t.Fatalf("second create should be idempotent: %v", err)
	}

	sa, err := clientset.CoreV1().ServiceAccounts(testNamespace).
		Get(ctx, "node-agent", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("ServiceAccount not found: %v", err)
	}
	if sa.Name != "node-agent" {
		t.Errorf("expected SA name %q, got %q", "node-agent", sa.Name)
	}
}

func TestGrantRole(t *testing.T) {
	clientset := fake.NewClientset()
	c := New(clientset, testNamespace)
	ctx := context.Background()

	t.Run("cluster scope", func(t *testing.T) {
		if err := c.GrantRole(ctx, "node-agent", "cluster-reader", ScopeCluster); err != nil {
			t.Fatalf("grant failed: %v", err)
		}

		crb, err := clientset.RbacV1().ClusterRoleBindings().
			Get(ctx, "node-agent-cluster-reader", metav1.GetOptions{})
		if err != nil {
			t.Fatalf("ClusterRoleBinding not found: %v", err)
		}
		if crb.RoleRef.Name != "cluster-reader" {
			t.Errorf("expected roleRef cluster-reader, got %q", crb.RoleRef.Name)
		}
		if len(crb.Subjects) != 1 || crb.Subjects[0].Name != "node-agent" {
			t.Errorf("unexpected subjects: %v", crb.Subjects)
		}
	})

	t.Run("namespace scope", func(t *testing.T) {
		if err := c.GrantRole(ctx, "node-agent", "log-writer", testNamespace); err != nil {
			t.Fatalf("grant failed: %v", err)
		}

		rb, err := clientset.RbacV1().RoleBindings(testNamespace).
			Get(ctx, "node-agent-log-writer", metav1.GetOptions{})
		if err != nil {
			t.Fatalf("RoleBinding not found: %v", err)
		}
		if rb.RoleRef.Kind != "Role" {
			t.Errorf("expected Role roleRef, got %q", rb.RoleRef.Kind)
		}
	})

	t.Run("repeat grant is idempotent", func(t *testing.T) {
		if err := c.GrantRole(ctx, "node-agent", "cluster-reader", ScopeCluster); err != nil {
			t.Fatalf("repeat grant failed: %v", err)
		}
	})
}

func TestApplyConfigMapCreateThenUpdate(t *testing.T) {
	clientset := fake.NewClientset()
	c := New(clientset, testNamespace)
	ctx := context.Background()

	if err := c.ApplyConfigMap(ctx, "agent-config", map[string]string{"fluent.conf": "v1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.ApplyConfigMap(ctx, "agent-config", map[string]string{"fluent.conf": "v2"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	cm, err := clientset.CoreV1().ConfigMaps(testNamespace).
		Get(ctx, "agent-config", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("ConfigMap not found: %v", err)
	}
	if cm.Data["fluent.conf"] != "v2" {
		t.Errorf("expected updated content, got %q", cm.Data["fluent.conf"])
	}
}

func TestApplySecretCreateThenUpdate(t *testing.T) {
	clientset := fake.NewClientset()
	c := New(clientset, testNamespace)
	ctx := context.Background()

	if err := c.ApplySecret(ctx, "agent-certs", map[string][]byte{"ca": []byte("pem-1")}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.ApplySecret(ctx, "agent-certs", map[string][]byte{"ca": []byte("pem-2")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	secret, err := clientset.CoreV1().Secrets(testNamespace).
		Get(ctx, "agent-certs", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("Secret not found: %v", err)
	}
	if string(secret.Data["ca"]) != "pem-2" {
		t.Errorf("expected updated content, got %q", secret.Data["ca"])
	}
}

func TestApplyDaemonSet(t *testing.T) {
	clientset := fake.NewClientset()
	c := New(clientset, testNamespace)
	ctx := context.Background()

	spec := DaemonSetSpec{
		Name:           "node-agent",
		Image:          "registry.example.com/logging/node-agent:latest",
		ServiceAccount: "node-agent",
		NodeSelector:   map[string]string{"logging-infra-fluentd": "true"},
		ConfigMapName:  "agent-config",
		SecretName:     "agent-certs",
	}

	if err := c.ApplyDaemonSet(ctx, spec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ds, err := clientset.AppsV1().DaemonSets(testNamespace).
		Get(ctx, "node-agent", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("DaemonSet not found: %v", err)
	}
	if ds.Spec.Template.Spec.NodeSelector["logging-infra-fluentd"] != "true" {
		t.Errorf("node selector not carried into pod template: %v", ds.Spec.Template.Spec.NodeSelector)
	}
	if ds.Spec.Template.Spec.ServiceAccountName != "node-agent" {
		t.Errorf("unexpected service account %q", ds.Spec.Template.Spec.ServiceAccountName)
	}

	// Re-apply with a new image updates in place.
	spec.Image = "registry.example.com/logging/node-agent:v2"
	if err := c.ApplyDaemonSet(ctx, spec); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	ds, err = clientset.AppsV1().DaemonSets(testNamespace).
		Get(ctx, "node-agent", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("DaemonSet not found after update: %v", err)
	}
	if got := ds.Spec.Template.Spec.Containers[0].Image; got != spec.Image {
		t.Errorf("expected image %q, got %q", spec.Image, got)
	}
}

func TestListNodes(t *testing.T) {
	clientset := fake.NewClientset(
		readyNode("node-1.example.com", true),
		readyNode("node-2.example.com", false),
	)
	c := New(clientset, testNamespace)

	names, err := c.ListNodes(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(names))
	}
}

func TestLabelNode(t *testing.T) {
	clientset := fake.NewClientset(readyNode("node-1.example.com", true))
	c := New(clientset, testNamespace)
	ctx := context.Background()

	if err := c.LabelNode(ctx, "node-1.example.com", "logging-infra-fluentd", "true"); err != nil {
		t.Fatalf("label failed: %v", err)
	}

	node, err := clientset.CoreV1().Nodes().Get(ctx, "node-1.example.com", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("node not found: %v", err)
	}
	if node.Labels["logging-infra-fluentd"] != "true" {
		t.Errorf("label not applied: %v", node.Labels)
	}
}

func TestGetNodeReadiness(t *testing.T) {
	clientset := fake.NewClientset(
		readyNode("ready.example.com", true),
		readyNode("notready.example.com", false),
	)
	c := New(clientset, testNamespace)
	ctx := context.Background()

	ready, err := c.GetNodeReadiness(ctx, "ready.example.com")
	if err != nil {
		t.Fatalf("readiness query failed: %v", err)
	}
	if !ready {
		t.Error("expected ready=true")
	}

	ready, err = c.GetNodeReadiness(ctx, "notready.example.com")
	if err != nil {
		t.Fatalf("readiness query failed: %v", err)
	}
	if ready {
		t.Error("expected ready=false")
	}

	if _, err := c.GetNodeReadiness(ctx, "absent.example.com"); err == nil {
		t.Error("expected error for missing node")
	}
}
