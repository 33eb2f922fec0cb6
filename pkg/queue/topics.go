package queue

import "github.com/yeisme/sdkcore/pkg/configs"

// 主题命名规范：sdk.<域>.<对象>，尽量稳定且向后兼容.

const (
	// TopicMetricsExecution 单次请求执行结束后的指标汇总，可通过 mq.topic 覆盖.
	TopicMetricsExecution = configs.DefaultMQTopic
)

// MetricsTopics 指标相关主题集合.
var MetricsTopics = []string{TopicMetricsExecution}
