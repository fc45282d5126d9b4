package notify

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"bloodlink/internal/core/config"
)

// SMSSender 紧急告警短信出口
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type snsSender struct {
	client *sns.Client
}

// NewSMSSender region 未配置时返回日志 no-op，不阻塞主流程
func NewSMSSender(cfg *config.Config, l *zap.Logger) (SMSSender, error) {
	if cfg.SNS.Region == "" {
		l.Warn("sns region empty, sms disabled (noop sender)")
		return &noopSMS{l: l}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNS.Region),
	)
	if err != nil {
		return nil, err
	}
	return &snsSender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *snsSender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	return err
}

type noopSMS struct{ l *zap.Logger }

func (n *noopSMS) SendSMS(_ context.Context, to, message string) error {
	n.l.Info("sms (noop)", zap.String("to", to), zap.String("message", message))
	return nil
}
