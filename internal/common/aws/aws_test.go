package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	SendRawEmailFunc func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error)
}

func (m *mockSES) SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	return m.SendRawEmailFunc(ctx, params)
}

type mockSNS struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params)
}

func TestSESClient_SendRawEmail(t *testing.T) {
	var got *ses.SendRawEmailInput
	client := NewSESClientWithAPI(&mockSES{
		SendRawEmailFunc: func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
			got = params
			return &ses.SendRawEmailOutput{MessageId: awssdk.String("msg-1")}, nil
		},
	})

	id, err := client.SendRawEmail(context.Background(), "security@example.org", []string{"alice@example.org"}, []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "security@example.org", awssdk.ToString(got.Source))
	assert.Equal(t, []string{"alice@example.org"}, got.Destinations)
	assert.Equal(t, []byte("raw"), got.RawMessage.Data)
}

func TestSESClient_PropagatesError(t *testing.T) {
	client := NewSESClientWithAPI(&mockSES{
		SendRawEmailFunc: func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	})
	_, err := client.SendRawEmail(context.Background(), "a@b", []string{"c@d"}, nil)
	assert.EqualError(t, err, "throttled")
}

func TestSNSClient_PublishTruncatesSubject(t *testing.T) {
	var got *sns.PublishInput
	client := NewSNSClientWithAPI(&mockSNS{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
			got = params
			return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
		},
	})

	id, err := client.Publish(context.Background(), "arn:aws:sns:eu-west-1:1:phishbot", strings.Repeat("s", 150), "body")
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Len(t, awssdk.ToString(got.Subject), maxSubjectLength)
	assert.Equal(t, "body", awssdk.ToString(got.Message))
}
