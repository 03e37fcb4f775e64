//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	s.amqpURL, err = container.AmqpURL(s.ctx)
	s.Require().NoError(err)
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestNotifyError_Delivered() {
	cfg := Config{URL: s.amqpURL, Exchange: "creator_sync", RoutingKey: "sync.error", QueueName: "sync_errors"}

	n, err := NewRabbitMQ(cfg, logging.NewNopLogger())
	s.Require().NoError(err)
	defer n.Close()

	s.Require().NoError(n.NotifyError(s.ctx, sampleEvent()))

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()
	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		var event models.ErrorEvent
		s.Require().NoError(json.Unmarshal(msg.Body, &event))
		s.Equal("acc-1", event.AccountID)
		s.Equal(3, event.AttemptNumber)
	case <-time.After(10 * time.Second):
		s.Fail("timeout waiting for event")
	}
}
