package eventbus

import (
	"errors"

	"content-forge/config"
)

// Brokers 는 설정의 Kafka bootstrap servers 를 돌려준다.
// KAFKA_BOOTSTRAP_SERVERS 환경변수는 config 에서 이미 반영된다.
func Brokers(cfg config.KafkaConfig) (string, error) {
	if cfg.BootstrapServers == "" {
		return "", errors.New("kafka.bootstrap_servers (KAFKA_BOOTSTRAP_SERVERS) is required")
	}
	return cfg.BootstrapServers, nil
}

// GroupID 는 컨슈머 그룹 ID 에 역할 접미사를 붙인다.
func GroupID(cfg config.KafkaConfig, suffix string) string {
	if suffix == "" {
		return cfg.GroupID
	}
	return cfg.GroupID + "-" + suffix
}
