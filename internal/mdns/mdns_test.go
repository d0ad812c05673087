package mdns

import (
	"reflect"
	"testing"
)

func TestAdvertiser_TXT(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"named", Config{Name: "radio-1", Version: "1.2"}, []string{"version=1.2", "name=radio-1"}},
		{"no version", Config{Name: "radio-1"}, []string{"name=radio-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewAdvertiser(tt.cfg).TXT(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TXT() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvertiser_InstanceFallback(t *testing.T) {
	if NewAdvertiser(Config{}).Instance() == "" {
		t.Error("instance name should never be empty")
	}
}

func TestAdvertiser_InvalidPort(t *testing.T) {
	a := NewAdvertiser(Config{Port: 0})
	if err := a.Start(); err == nil {
		t.Error("Start with port 0 should fail")
	}
	if a.Running() {
		t.Error("should not be running")
	}
	a.Stop()
}
