package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// colores por nivel
var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgBlue),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

// colores por componente
var componentColor = map[string]*color.Color{
	"FrontDesk": color.New(color.FgGreen),
	"Concierge": color.New(color.FgMagenta),
	"Workflow":  color.New(color.FgCyan),
	"Resolver":  color.New(color.FgBlue),
	"Token":     color.New(color.FgYellow),
	"LLM":       color.New(color.FgCyan),
	"HTTP":      color.New(color.FgBlue),
	"Config":    color.New(color.FgMagenta),
	"App":       color.New(color.FgGreen),
	"Mock":      color.New(color.FgCyan),
}

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel accepts debug, info, warn or error; anything else keeps info.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		minLevel.Store(int32(LevelDebug))
	case "warn", "warning":
		minLevel.Store(int32(LevelWarn))
	case "error":
		minLevel.Store(int32(LevelError))
	default:
		minLevel.Store(int32(LevelInfo))
	}
}

func useColor() bool {
	env := os.Getenv("ENV")
	return (env == "local" || env == "dev") && !color.NoColor
}

func Debug(component, msg string, args ...any) { logGeneric(LevelDebug, component, msg, args...) }
func Info(component, msg string, args ...any)  { logGeneric(LevelInfo, component, msg, args...) }
func Warn(component, msg string, args ...any)  { logGeneric(LevelWarn, component, msg, args...) }
func Error(component, msg string, args ...any) { logGeneric(LevelError, component, msg, args...) }

func logGeneric(level Level, component, msg string, args ...any) {
	if int32(level) < minLevel.Load() {
		return
	}
	full := fmt.Sprintf(msg, args...)
	lvl, comp := "["+levelNames[level]+"]", "["+component+"]"

	if useColor() {
		lvl = levelColor[level].Sprint(lvl)
		if c, ok := componentColor[component]; ok {
			comp = c.Sprint(comp)
		}
	}
	log.Printf("%s %s %s", lvl, comp, full)
}

// L logs a line tagged with a run id.
func L(id, component, msg string, args ...any) {
	Info(component, "["+id+"] "+msg, args...)
}
