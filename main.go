package main

import (
	"transcribe-service/app"
	"transcribe-service/pkg/observability"
)

func main() {
	observability.StartProfiling("transcribe-service")
	app.Run()
}
