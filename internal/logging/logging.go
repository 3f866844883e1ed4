// Package logging настраивает общий логгер процесса.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Форматы вывода логов
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup настраивает глобальный логгер logrus. Вызывается один раз при старте.
func Setup(level, format string) {
	SetupOutput(os.Stdout, level, format)
}

// SetupOutput настраивает глобальный логгер с заданным выводом
func SetupOutput(out io.Writer, level, format string) {
	log.SetOutput(out)

	switch strings.ToLower(format) {
	case FormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.WithField("level", level).Warn("Unknown log level, using info")
		return
	}
	log.SetLevel(lvl)
}
