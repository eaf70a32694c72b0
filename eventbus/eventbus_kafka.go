package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"content-forge/config"
)

// KafkaEventBus는 confluent-kafka-go 라이브러리를 사용한 EventBus 구현체입니다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

// NewKafkaEventBus는 Kafka Producer를 초기화합니다.
func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
		// 리서치 결과가 실린 이벤트는 기본 1MB 를 넘을 수 있다.
		"message.max.bytes": 4 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka Producer 생성 실패: %w", err)
	}

	// 전달 보고서 처리
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					config.Logger.Errorf("메시지 전달 실패 %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				config.Logger.Errorf("Kafka 오류: %v", ev)
			}
		}
	}()

	return &KafkaEventBus{
		Producer: p,
		Brokers:  brokers,
	}, nil
}

// Close는 Producer를 안전하게 종료합니다.
func (k *KafkaEventBus) Close() {
	if k.Producer == nil {
		return
	}
	if remaining := k.Producer.Flush(5000); remaining > 0 {
		config.Logger.Warnf("플러시 후에도 %d개의 메시지가 남아 있습니다.", remaining)
	}
	k.Producer.Close()
	config.Logger.Info("Kafka Producer 종료.")
}

// Publish는 지정된 토픽에 이벤트를 발행하고 전달 보고를 기다립니다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("이벤트 마샬링 실패: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            event.partitionKey(),
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("메시지 발행 실패: %w", err)
	}

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("예상치 못한 전달 보고: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("메시지 전달 실패: %w", m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (k *KafkaEventBus) newConsumer(groupID string) (*kafka.Consumer, error) {
	return kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":             k.Brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false, // 재시도 로직을 위해 수동 커밋 사용
		"partition.assignment.strategy": "range",
		// 생성 한 번이 수 분 걸릴 수 있다.
		"max.poll.interval.ms": 900000,
	})
}

// readMessage 는 타임아웃을 (nil, nil) 로 돌려주고 치명적 오류만 반환한다.
func readMessage(c *kafka.Consumer, role string) (*kafka.Message, error) {
	msg, err := c.ReadMessage(100 * time.Millisecond)
	if err == nil {
		return msg, nil
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if kerr.Code() == kafka.ErrTimedOut {
			return nil, nil
		}
		if kerr.IsFatal() {
			return nil, fmt.Errorf("%s 컨슈머 치명적 오류: %w", role, err)
		}
	}
	config.Logger.Errorf("%s 컨슈머 ReadMessage 오류: %v", role, err)
	time.Sleep(500 * time.Millisecond)
	return nil, nil
}

// Subscribe는 기본 토픽을 구독하고 메인 비즈니스 핸들러를 실행합니다.
// 핸들러가 실패하면 이벤트를 지연 토픽이나 DLQ 로 보낸 뒤 오프셋을 커밋합니다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("kafka Consumer 생성 실패: %w", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topic.Base()}, nil); err != nil {
		return fmt.Errorf("토픽 구독 실패 %s: %w", topic.Base(), err)
	}
	config.Logger.Infof("메인 컨슈머 (%s) 시작됨. 구독 토픽: %s", groupID, topic.Base())

	for {
		select {
		case <-ctx.Done():
			config.Logger.Info("메인 컨슈머 종료 중.")
			return ctx.Err()
		default:
		}

		msg, err := readMessage(c, "메인")
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			config.Logger.Errorf("토픽 %s의 이벤트 페이로드 오류: %v. 메시지를 건너뛰고 커밋합니다.", *msg.TopicPartition.Topic, err)
			_, _ = c.CommitMessage(msg)
			continue
		}
		if evt.MaxRetry <= 0 || evt.MaxRetry > len(RetryDelays) {
			evt.MaxRetry = len(RetryDelays)
		}

		fields := config.Fields{"event_id": evt.ID, "topic": *msg.TopicPartition.Topic, "retry": evt.Retry}
		config.DebugWithFields("이벤트 처리 시작", fields)

		if herr := handler(ctx, evt); herr != nil {
			evt.LastError = herr.Error()
			dest, retry, dlq := nextDestination(topic, evt, herr)
			evt.Retry = retry
			fields["error"] = herr.Error()
			fields["destination"] = dest
			if dlq {
				config.ErrorWithFields("이벤트를 DLQ로 전송", fields)
			} else {
				config.WarnWithFields("이벤트 처리 실패, 재시도 예약", fields)
			}
			if perr := k.Publish(ctx, dest, evt); perr != nil {
				fields["publish_error"] = perr.Error()
				config.ErrorWithFields("재시도/DLQ 발행 실패, 오프셋 커밋 안함", fields)
				continue
			}
		}

		if _, err := c.CommitMessage(msg); err != nil {
			config.Logger.Errorf("오프셋 커밋 오류: %v", err)
		}
	}
}

// StartRetryReinjector는 모든 재시도 토픽을 구독하고 지연 시간이 지난 메시지를 기본 토픽으로 재발행합니다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("kafka 재시도 재주입기 생성 실패: %w", err)
	}
	defer c.Close()

	retryTopics := topic.GetRetryTopics()
	if err := c.SubscribeTopics(retryTopics, nil); err != nil {
		return fmt.Errorf("재시도 토픽 구독 실패 %v: %w", retryTopics, err)
	}
	config.Logger.Infof("재시도 재주입 컨슈머 (%s) 시작됨. 구독 토픽: %s", groupID, strings.Join(retryTopics, ", "))

	for {
		select {
		case <-ctx.Done():
			config.Logger.Info("재시도 재주입 컨슈머 종료 중.")
			return ctx.Err()
		default:
		}

		msg, err := readMessage(c, "재시도 재주입")
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}

		topicName := *msg.TopicPartition.Topic
		delay, ok := ParseRetryFromTopicName(topicName)
		if !ok {
			config.Logger.Errorf("재시도 토픽 이름 파싱 실패: %s. 메시지를 건너뛰고 커밋합니다.", topicName)
			_, _ = c.CommitMessage(msg)
			continue
		}

		if wait := time.Until(msg.Timestamp.Add(delay)); wait > 0 {
			// 아직 준비되지 않은 메시지: 같은 오프셋부터 다시 읽는다
			if err := rewind(c, msg); err != nil {
				config.Logger.Errorf("재시도 메시지 되감기 실패: %v", err)
			}
			time.Sleep(min(max(wait, 50*time.Millisecond), 500*time.Millisecond))
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			config.Logger.Errorf("재시도 토픽 %s의 이벤트 페이로드 오류: %v. 메시지를 건너뛰고 커밋합니다.", topicName, err)
			_, _ = c.CommitMessage(msg)
			continue
		}

		config.InfoWithFields("이벤트 재주입", config.Fields{
			"event_id": evt.ID,
			"from":     topicName,
			"to":       topic.Base(),
			"retry":    evt.Retry,
		})
		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			config.Logger.Errorf("이벤트 %s 재주입 실패: %v. 오프셋 커밋 안함.", evt.ID, err)
			_ = rewind(c, msg)
			continue
		}
		if _, err := c.CommitMessage(msg); err != nil {
			config.Logger.Errorf("재주입 후 커밋 오류: %v", err)
		}
	}
}

// rewind 는 커밋하지 않은 메시지를 다시 읽도록 파티션 위치를 되돌린다.
func rewind(c *kafka.Consumer, msg *kafka.Message) error {
	return c.Seek(msg.TopicPartition, 0)
}
