package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"
)

// Client implements API on top of client-go.
type Client struct {
	clientset kubernetes.Interface
	namespace string
}

// New creates a Client scoped to the given namespace.
func New(clientset kubernetes.Interface, namespace string) *Client {
	return &Client{clientset: clientset, namespace: namespace}
}

// CreateServiceAccount implements API. Creation is idempotent: an existing
// account is reused.
func (c *Client) CreateServiceAccount(ctx context.Context, name string) error {
	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
		},
	}

	_, err := c.clientset.CoreV1().ServiceAccounts(c.namespace).Create(ctx, sa, metav1.CreateOptions{})
	if err := ignoreAlreadyExists(err); err != nil {
		return fmt.Errorf("failed to create ServiceAccount %q: %w", name, err)
	}
	return nil
}

// GrantRole implements API. The role itself must already exist; the grant
// creates the binding.
func (c *Client) GrantRole(ctx context.Context, serviceAccount, role, scope string) error {
	subject := rbacv1.Subject{
		Kind:      rbacv1.ServiceAccountKind,
		Name:      serviceAccount,
		Namespace: c.namespace,
	}
	bindingName := fmt.Sprintf("%s-%s", serviceAccount, role)

	if scope == ScopeCluster {
		crb := &rbacv1.ClusterRoleBinding{
			ObjectMeta: metav1.ObjectMeta{Name: bindingName},
			Subjects:   []rbacv1.Subject{subject},
			RoleRef: rbacv1.RoleRef{
				APIGroup: rbacv1.GroupName,
				Kind:     "ClusterRole",
				Name:     role,
			},
		}
		_, err := c.clientset.RbacV1().ClusterRoleBindings().Create(ctx, crb, metav1.CreateOptions{})
		if err := ignoreAlreadyExists(err); err != nil {
			return fmt.Errorf("failed to grant cluster role %q to %q: %w", role, serviceAccount, err)
		}
		return nil
	}

	rb := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      bindingName,
			Namespace: scope,
		},
		Subjects: []rbacv1.Subject{subject},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     role,
		},
	}
	_, err := c.clientset.RbacV1().RoleBindings(scope).Create(ctx, rb, metav1.CreateOptions{})
	if err := ignoreAlreadyExists(err); err != nil {
		return fmt.Errorf("failed to grant role %q to %q in %q: %w", role, serviceAccount, scope, err)
	}
	return nil
}

// ApplyConfigMap implements API with create-or-update semantics.
func (c *Client) ApplyConfigMap(ctx context.Context, name string, files map[string]string) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
		},
		Data: files,
	}

	cms := c.clientset.CoreV1().ConfigMaps(c.namespace)
	if _, err := cms.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		if !errors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create ConfigMap %q: %w", name, err)
		}
		if _, err := cms.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to update ConfigMap %q: %w", name, err)
		}
	}
	return nil
}

// ApplySecret implements API with create-or-update semantics.
func (c *Client) ApplySecret(ctx context.Context, name string, files map[string][]byte) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: c.namespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: files,
	}

	secrets := c.clientset.CoreV1().Secrets(c.namespace)
	if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
		if !errors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create Secret %q: %w", name, err)
		}
		if _, err := secrets.Update(ctx, secret, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to update Secret %q: %w", name, err)
		}
	}
	return nil
}

// ApplyDaemonSet implements API with create-or-update semantics.
func (c *Client) ApplyDaemonSet(ctx context.Context, spec DaemonSetSpec) error {
	ds := buildDaemonSet(c.namespace, spec)

	daemonsets := c.clientset.AppsV1().DaemonSets(c.namespace)
	if _, err := daemonsets.Create(ctx, ds, metav1.CreateOptions{}); err != nil {
		if !errors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create DaemonSet %q: %w", spec.Name, err)
		}
		if _, err := daemonsets.Update(ctx, ds, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to update DaemonSet %q: %w", spec.Name, err)
		}
	}

	slog.Debug("applied daemonset", slog.String("name", spec.Name), slog.String("namespace", c.namespace))
	return nil
}

// ListNodes implements API.
func (c *Client) ListNodes(ctx context.Context) ([]string, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	names := make([]string, 0, len(nodes.Items))
	for _, node := range nodes.Items {
		names = append(names, node.Name)
	}
	return names, nil
}

// LabelNode implements API using a merge patch so concurrent updates to
// unrelated labels are not clobbered.
func (c *Client) LabelNode(ctx context.Context, name, key, value string) error {
	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{
			"labels": map[string]string{key: value},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build label patch: %w", err)
	}

	_, err = c.clientset.CoreV1().Nodes().Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("failed to label node %q: %w", name, err)
	}
	return nil
}

// GetNodeReadiness implements API.
func (c *Client) GetNodeReadiness(ctx context.Context, name string) (bool, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to get node %q: %w", name, err)
	}

	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue, nil
		}
	}
	return false, nil
}

func buildDaemonSet(namespace string, spec DaemonSetSpec) *appsv1.DaemonSet {
	labels := map[string]string{
		"component": spec.Name,
		"provider":  "nodectl",
	}

	return &appsv1.DaemonSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DaemonSetSpec{
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   spec.Name,
					Labels: labels,
				},
				Spec: corev1.PodSpec{
					ServiceAccountName: spec.ServiceAccount,
					NodeSelector:       spec.NodeSelector,
					Containers: []corev1.Container{
						{
							Name:  spec.Name,
							Image: spec.Image,
							SecurityContext: &corev1.SecurityContext{
								Privileged: ptr.To(true),
							},
							VolumeMounts: []corev1.VolumeMount{
								{
									Name:      "config",
									MountPath: "/etc/agent/configs",
									ReadOnly:  true,
								},
								{
									Name:      "certs",
									MountPath: "/etc/agent/keys",
									ReadOnly:  true,
								},
								{
									Name:      "varlog",
									MountPath: "/var/log",
								},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "config",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{
										Name: spec.ConfigMapName,
									},
								},
							},
						},
						{
							Name: "certs",
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{
									SecretName: spec.SecretName,
								},
							},
						},
						{
							Name: "varlog",
							VolumeSource: corev1.VolumeSource{
								HostPath: &corev1.HostPathVolumeSource{
									Path: "/var/log",
								},
							},
						},
					},
				},
			},
		},
	}
}

// ignoreAlreadyExists returns nil if the error is "already exists", making
// resource creation idempotent.
func ignoreAlreadyExists(err error) error {
	if errors.IsAlreadyExists(err) {
		return nil
	}
	return err
}
