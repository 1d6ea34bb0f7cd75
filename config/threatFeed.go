package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// ThreatFeedMessage is the wire shape published to the shared
// threat-intelligence topic when an invoice is blocked or a threat is
// reported manually.
type ThreatFeedMessage struct {
	ThreatId      string    `json:"threat_id"`
	Vendor        string    `json:"vendor"`
	FraudScore    int       `json:"fraud_score"`
	Reason        string    `json:"reason"`
	AmountBlocked string    `json:"amount_blocked"`
	ReportedAt    time.Time `json:"reported_at"`
	CorrelationId string    `json:"correlation_id"`
}

var (
	feedClient   *pubsub.Client
	feedClientMu sync.Mutex
)

// ThreatFeedEnabled reports whether a sharing topic is configured. The feed
// is optional; when disabled, blocked invoices are only recorded locally.
func ThreatFeedEnabled() bool {
	return threatFeedTopic() != "" && feedProjectID() != ""
}

func threatFeedTopic() string {
	return os.Getenv("THREAT_FEED_TOPIC")
}

func feedProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getFeedClient(ctx context.Context) (*pubsub.Client, error) {
	feedClientMu.Lock()
	defer feedClientMu.Unlock()
	if feedClient != nil {
		return feedClient, nil
	}

	projectID := feedProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Application Default Credentials (service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	feedClient = c
	return feedClient, nil
}

// PublishThreatReport publishes a threat record to the sharing feed.
// Publishing is best-effort from the pipeline's point of view: callers treat
// an error here as a non-fatal side-effect failure.
func PublishThreatReport(ctx context.Context, msg ThreatFeedMessage) (string, error) {
	topicName := threatFeedTopic()
	if topicName == "" {
		return "", errors.New("THREAT_FEED_TOPIC is required")
	}

	client, err := getFeedClient(ctx)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := client.Topic(topicName).Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish threat report to %q: %w", topicName, err)
	}
	return id, nil
}

// CloseThreatFeed releases the Pub/Sub client on shutdown.
func CloseThreatFeed() {
	feedClientMu.Lock()
	defer feedClientMu.Unlock()
	if feedClient != nil {
		_ = feedClient.Close()
		feedClient = nil
	}
}
