package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var (
	Trace *log.Logger
	Debug *log.Logger
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger

	currentLevel LogLevel
)

func init() {
	Trace = log.New(os.Stdout, "[TRACE] ", log.Ldate|log.Ltime)
	Debug = log.New(os.Stdout, "[DEBUG] ", log.Ldate|log.Ltime)
	Info = log.New(os.Stdout, "[INFO] ", log.Ldate|log.Ltime)
	Warn = log.New(os.Stdout, "[WARN] ", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "[ERROR] ", log.Ldate|log.Ltime)

	currentLevel = levelFromEnv()

	for lvl, l := range map[LogLevel]*log.Logger{
		TRACE: Trace,
		DEBUG: Debug,
		INFO:  Info,
		WARN:  Warn,
	} {
		if currentLevel > lvl {
			l.SetOutput(io.Discard)
		}
	}
}

func levelFromEnv() LogLevel {
	switch strings.ToUpper(os.Getenv("ZUPERVISOR_LOG_LEVEL")) {
	case "TRACE":
		return TRACE
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return DEBUG
	}
}

func IsTraceEnabled() bool {
	return currentLevel <= TRACE
}

func IsDebugEnabled() bool {
	return currentLevel <= DEBUG
}

func Tracef(format string, v ...interface{}) {
	if IsTraceEnabled() {
		Trace.Printf(format, v...)
	}
}

func Debugf(format string, v ...interface{}) {
	if IsDebugEnabled() {
		Debug.Printf(format, v...)
	}
}

func Infof(format string, v ...interface{}) {
	if currentLevel <= INFO {
		Info.Printf(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if currentLevel <= WARN {
		Warn.Printf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	Error.Printf(format, v...)
}
