package event

import (
	"lending-engine/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRabbitMQURI(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RabbitMQConfig
		want    string
		wantErr bool
	}{
		{"host and port", config.RabbitMQConfig{Host: "mq", Port: 5672}, "amqp://mq:5672/", false},
		{"with credentials", config.RabbitMQConfig{Host: "mq", Port: 5672, Username: "guest", Password: "p@ss"}, "amqp://guest:p%40ss@mq:5672/", false},
		{"host only", config.RabbitMQConfig{Host: "mq"}, "amqp://mq/", false},
		{"missing host", config.RabbitMQConfig{}, "", true},
		{"username without password", config.RabbitMQConfig{Host: "mq", Username: "guest"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RabbitMQURI(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
