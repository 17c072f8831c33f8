package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/garage-notify/internal/config"
	"github.com/garage-notify/internal/domain"
	"github.com/garage-notify/internal/infrastructure/awsconf"
)

// ErrUnsupportedPlatform is returned when no platform application can reach the device.
var ErrUnsupportedPlatform = errors.New("no platform application for device platform")

// API is the subset of the SNS client used for mobile push.
type API interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PushGateway delivers mobile pushes through SNS platform endpoints.
// Android (and, as a fallback, iOS) goes through the FCM platform application;
// iOS uses the APNS application when one is configured.
type PushGateway struct {
	client     API
	androidARN string
	iosARN     string

	endpoints sync.Map // platformAppARN + "|" + token -> endpoint ARN
}

func NewPushGateway(client API, androidARN, iosARN string) *PushGateway {
	return &PushGateway{client: client, androidARN: androidARN, iosARN: iosARN}
}

// NewClient creates an SNS client in SNS_REGION, honouring the LocalStack endpoint override.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	endpoint := awsconf.Endpoint(cfg)
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	}), nil
}

// Enabled reports whether any platform application is configured.
func (g *PushGateway) Enabled() bool {
	return g != nil && (g.androidARN != "" || g.iosARN != "")
}

// Send publishes msg to the device's platform endpoint, creating the endpoint on first use.
func (g *PushGateway) Send(ctx context.Context, msg domain.PushMessage) error {
	appARN, apns := g.applicationFor(msg.Platform)
	if appARN == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, msg.Platform)
	}
	endpointARN, err := g.endpoint(ctx, appARN, msg.Token)
	if err != nil {
		return err
	}
	payload, err := buildPayload(msg)
	if err != nil {
		return err
	}
	in := &sns.PublishInput{
		TargetArn:        aws.String(endpointARN),
		Message:          aws.String(payload),
		MessageStructure: aws.String("json"),
	}
	if apns && msg.Urgent {
		in.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.MOBILE.APNS.PRIORITY": {DataType: aws.String("String"), StringValue: aws.String("10")},
		}
	}
	if _, err := g.client.Publish(ctx, in); err != nil {
		var disabled *types.EndpointDisabledException
		var notFound *types.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &notFound) {
			g.endpoints.Delete(appARN + "|" + msg.Token)
		}
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (g *PushGateway) applicationFor(platform string) (arn string, apns bool) {
	if platform == domain.PlatformIOS && g.iosARN != "" {
		return g.iosARN, true
	}
	return g.androidARN, false
}

func (g *PushGateway) endpoint(ctx context.Context, appARN, token string) (string, error) {
	key := appARN + "|" + token
	if v, ok := g.endpoints.Load(key); ok {
		return v.(string), nil
	}
	out, err := g.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", fmt.Errorf("create platform endpoint: %w", err)
	}
	arn := aws.ToString(out.EndpointArn)
	g.endpoints.Store(key, arn)
	return arn, nil
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string          `json:"priority"`
	Notification fcmAndroidHints `json:"notification"`
}

type fcmAndroidHints struct {
	ChannelID string `json:"channel_id,omitempty"`
	Sound     string `json:"sound,omitempty"`
}

type apsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type aps struct {
	Alert apsAlert `json:"alert"`
	Sound string   `json:"sound"`
}

// buildPayload renders the SNS per-protocol JSON message.
func buildPayload(msg domain.PushMessage) (string, error) {
	data := msg.Data
	if data == nil {
		data = map[string]string{}
	}
	priority := "NORMAL"
	if msg.Urgent {
		priority = "HIGH"
	}
	gcm, err := json.Marshal(map[string]any{
		"fcmV1Message": map[string]any{
			"message": map[string]any{
				"notification": fcmNotification{Title: msg.Title, Body: msg.Body},
				"data":         data,
				"android": fcmAndroid{
					Priority:     priority,
					Notification: fcmAndroidHints{ChannelID: msg.ChannelID, Sound: msg.Sound},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal fcm payload: %w", err)
	}

	sound := msg.Sound
	if sound == "" {
		sound = "default"
	}
	apnsBody := map[string]any{"aps": aps{Alert: apsAlert{Title: msg.Title, Body: msg.Body}, Sound: sound}}
	for k, v := range data {
		if k != "aps" {
			apnsBody[k] = v
		}
	}
	apns, err := json.Marshal(apnsBody)
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
