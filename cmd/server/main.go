package main

import (
	_ "github.com/EduardoFdeM/pitchai-backend/docs"
	"github.com/EduardoFdeM/pitchai-backend/internal/bootstrap"
)

// @title PitchAI Backend API
// @version 1.0.0
// @description Dual-source call capture and streaming transcription backend

// @host localhost:8080
// @BasePath /v1

func main() {
	bootstrap.Run()
}
