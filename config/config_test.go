package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbocsi/rosteleop/proto"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rosteleop.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	configContent := `
endpoint: "ws://10.0.0.5:9090"
logging:
  level: debug
  log_path: /tmp/rosteleop-logs
http:
  addr: ":9000"

# Topics replayed on every connect
topics:
  - name: /robot_pose
    type: geometry_msgs/Pose2D
  - name: /android
    type: std_msgs/String

teleop:
  keys_topic: /keys
  max_linear: 0.8

buffers:
  history: 50
service_timeout_ms: 1500
`
	config, err := Load(writeConfig(t, configContent))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Endpoint != "ws://10.0.0.5:9090" {
		t.Errorf("Expected endpoint ws://10.0.0.5:9090, got %s", config.Endpoint)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %s", config.Logging.Level)
	}
	if config.Logging.LogPath != "/tmp/rosteleop-logs" {
		t.Errorf("Expected log path /tmp/rosteleop-logs, got %s", config.Logging.LogPath)
	}
	if config.HTTP.Addr != ":9000" {
		t.Errorf("Expected http addr :9000, got %s", config.HTTP.Addr)
	}

	if len(config.Topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(config.Topics))
	}
	if config.Topics[1] != (proto.Topic{Name: "/android", MessageType: proto.TypeString}) {
		t.Errorf("Unexpected second topic %+v", config.Topics[1])
	}

	if config.Teleop.KeysTopic != "/keys" {
		t.Errorf("Expected keys topic /keys, got %s", config.Teleop.KeysTopic)
	}
	if config.Teleop.MaxLinear != 0.8 {
		t.Errorf("Expected max_linear 0.8, got %v", config.Teleop.MaxLinear)
	}
	// Unset fields keep their defaults
	if config.Teleop.AngleTopic != "/angle" {
		t.Errorf("Expected default angle topic /angle, got %s", config.Teleop.AngleTopic)
	}
	if config.Buffers.Outbox != 256 {
		t.Errorf("Expected default outbox 256, got %d", config.Buffers.Outbox)
	}
	if config.Buffers.History != 50 {
		t.Errorf("Expected history 50, got %d", config.Buffers.History)
	}
	if config.ServiceTimeout() != 1500*time.Millisecond {
		t.Errorf("Expected service timeout 1.5s, got %s", config.ServiceTimeout())
	}
	if !config.HasTopic("/robot_pose") || config.HasTopic("/cmd_vel") {
		t.Error("HasTopic returned unexpected result")
	}
}

func TestDefault(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	if config.Endpoint != "ws://192.168.8.161:9090" {
		t.Errorf("Expected default endpoint ws://192.168.8.161:9090, got %s", config.Endpoint)
	}
	if len(config.Topics) != 1 || config.Topics[0].MessageType != proto.TypePose2D {
		t.Errorf("Expected default /robot_pose Pose2D topic, got %+v", config.Topics)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad scheme", `endpoint: "http://robot:9090"`, "invalid endpoint"},
		{"empty endpoint", `endpoint: ""`, "missing required field in config: endpoint"},
		{"unknown type", "topics:\n  - name: /odom\n    type: nav_msgs/Odometry\n", "unknown message type"},
		{"unnamed topic", "topics:\n  - type: std_msgs/String\n", "topics[0].name"},
		{"zero outbox", "buffers:\n  outbox: 0\n", "buffers.outbox"},
		{"negative history", "buffers:\n  history: -1\n", "buffers.history"},
		{"zero timeout", "service_timeout_ms: 0\n", "service_timeout_ms"},
		{"negative speed", "teleop:\n  max_angular: -1\n", "speed limits"},
		{"bad yaml", "topics: [", "error parsing config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_DiscoverWithoutEndpoint(t *testing.T) {
	config, err := Load(writeConfig(t, "endpoint: \"\"\ndiscover: true\n"))
	if err != nil {
		t.Fatalf("Expected discover mode to allow an empty endpoint: %v", err)
	}
	if !config.Discover {
		t.Error("Expected discover true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "error reading config file") {
		t.Errorf("Expected read error, got %v", err)
	}
}
