package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const maxDedupIDLen = 128

// SendAPI is the subset of the SQS client used by the publisher.
type SendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is one publish request.
type Message struct {
	Body    string
	DedupID string
	GroupID string
}

// SQSPublisher sends messages to an SQS-compatible queue.
type SQSPublisher struct {
	api SendAPI
}

// Options describes how to reach the queue service.
type Options struct {
	Endpoint        string
	Region          string
	AccessKey       string
	SecretAccessKey string
}

func New(opts Options) *SQSPublisher {
	client := sqs.New(sqs.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(opts.Endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretAccessKey, ""),
	})
	return &SQSPublisher{api: client}
}

func NewWithAPI(api SendAPI) *SQSPublisher {
	return &SQSPublisher{api: api}
}

// Publish sends msg to queueURL. The group id is only attached for FIFO
// queues, which require it.
func (p *SQSPublisher) Publish(ctx context.Context, queueURL string, msg Message) error {
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(msg.Body),
	}
	if msg.DedupID != "" {
		in.MessageDeduplicationId = aws.String(msg.DedupID)
	}
	if msg.GroupID != "" && strings.HasSuffix(queueURL, ".fifo") {
		in.MessageGroupId = aws.String(sanitizeID(msg.GroupID))
	}

	if _, err := p.api.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("send to %s: %w", queueURL, err)
	}
	return nil
}

// DedupID returns the deduplication token for face index of objectKey.
// In "object" mode every face of an image shares the object key.
func DedupID(objectKey string, index int, perFace bool) string {
	id := objectKey
	if perFace {
		id = fmt.Sprintf("%s#%d", objectKey, index)
	}
	return sanitizeID(id)
}

// sanitizeID hashes ids the queue would reject: too long or with characters
// outside printable ASCII.
func sanitizeID(id string) string {
	if len(id) <= maxDedupIDLen && isPrintableASCII(id) {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '!' || s[i] > '~' {
			return false
		}
	}
	return true
}
