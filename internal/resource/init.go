package resource

import "transcribe-service/pkg/manager"

func init() {
	manager.RegisterResourcePlugin(&MySqlResourcePlugin{})
	manager.RegisterResourcePlugin(&RedisResourcePlugin{})
	manager.RegisterResourcePlugin(&MinioResourcePlugin{})
	manager.RegisterResourcePlugin(&KafkaResourcePlugin{})
}
