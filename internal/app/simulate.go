package app

import (
	"context"
	"errors"
	"time"

	"rate-monitor/internal/alerting"
)

// SimulateAlert 通过配置好的告警通道发送一条测试消息。
func (a *App) SimulateAlert(ctx context.Context, message string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	if message == "" {
		message = "test alert from ratewatcher"
	}

	note := alerting.Notification{
		When:    time.Now().UTC(),
		Subject: "Rate Monitor Test",
		Lines:   []string{message},
	}
	return notifier.Notify(ctx, note)
}
