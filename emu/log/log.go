// Package log provides per-hardware-module structured logging, backed by
// logrus. Every call site goes through a small chain builder whose first
// call is a cheap module-enabled check, so logging a hot path (opcode
// dispatch, per-dot PPU work) costs nothing when the module is disabled:
// no field evaluation, no allocation, no formatting.
package log

import (
	"fmt"
	"os"

	"gopkg.in/Sirupsen/logrus.v0"
)

// Module identifies one subsystem. Each can be independently enabled so a
// user chasing a PPU bug doesn't have to wade through CPU trace spam.
type Module uint32

const (
	ModCPU Module = 1 << iota
	ModPPU
	ModAPU
	ModSound // used by hw/apu for channel-level traces; shares the name "apu" with ModAPU
	ModDMA
	ModMapper
	ModBus
	ModHwIo
	ModInput
	ModEmu
)

var names = map[Module]string{
	ModCPU:    "cpu",
	ModPPU:    "ppu",
	ModAPU:    "apu",
	ModSound:  "apu",
	ModDMA:    "dma",
	ModMapper: "mapper",
	ModBus:    "bus",
	ModHwIo:   "hwio",
	ModInput:  "input",
	ModEmu:    "emu",
}

// ModuleByName resolves a module by its user-facing name. A name shared by
// several modules resolves to all of them.
func ModuleByName(name string) (Module, bool) {
	var mod Module
	for m, n := range names {
		if n == name {
			mod |= m
		}
	}
	return mod, mod != 0
}

// ModuleMaskAll enables every module.
const ModuleMaskAll = Module(1<<10 - 1)

func (m Module) String() string {
	if n, ok := names[m]; ok {
		return n
	}
	return "unknown"
}

var (
	enabled Module // bitmask of currently-enabled modules
	logger  = logrus.New()
)

func init() {
	logger.Out = os.Stderr
	logger.Level = logrus.InfoLevel
}

// SetEnabled turns logging for mod on or off. Disabled modules never touch
// the underlying logrus.Logger.
func SetEnabled(mod Module, on bool) {
	if on {
		enabled |= mod
	} else {
		enabled &^= mod
	}
}

// SetMask replaces the full set of enabled modules at once; used when
// loading a persisted Config.
func SetMask(mask Module) { enabled = mask }

var levelByName = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
}

// SetLevel adjusts the minimum severity actually emitted.
func SetLevel(lvl string) {
	if l, ok := levelByName[lvl]; ok {
		logger.Level = l
	}
}

func (m Module) isEnabled() bool { return enabled&m != 0 }

// Entry is a chain builder for a single structured log line. Field methods
// are no-ops once an entry has been built disabled, so the usual call
// pattern (log.ModCPU.DebugZ("msg").Hex16("pc", pc).End()) allocates nothing
// on the disabled path beyond the Entry value itself.
type Entry struct {
	mod    Module
	level  logrus.Level
	on     bool
	msg    string
	fields logrus.Fields
}

func (m Module) entry(lvl logrus.Level, msg string) *Entry {
	e := &Entry{mod: m, level: lvl, msg: msg, on: m.isEnabled() && lvl <= logger.Level}
	if e.on {
		e.fields = make(logrus.Fields, 4)
	}
	return e
}

func (m Module) DebugZ(msg string) *Entry { return m.entry(logrus.DebugLevel, msg) }
func (m Module) InfoZ(msg string) *Entry  { return m.entry(logrus.InfoLevel, msg) }
func (m Module) WarnZ(msg string) *Entry  { return m.entry(logrus.WarnLevel, msg) }
func (m Module) ErrorZ(msg string) *Entry { return m.entry(logrus.ErrorLevel, msg) }

func (e *Entry) String(key, val string) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Bool(key string, val bool) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Uint8(key string, val uint8) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Uint16(key string, val uint16) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Uint32(key string, val uint32) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Int(key string, val int) *Entry {
	if e.on {
		e.fields[key] = val
	}
	return e
}

func (e *Entry) Hex8(key string, val uint8) *Entry {
	if e.on {
		e.fields[key] = fmt.Sprintf("%#02x", val)
	}
	return e
}

func (e *Entry) Hex16(key string, val uint16) *Entry {
	if e.on {
		e.fields[key] = fmt.Sprintf("%#04x", val)
	}
	return e
}

func (e *Entry) Error(key string, err error) *Entry {
	if e.on && err != nil {
		e.fields[key] = err.Error()
	}
	return e
}

// End flushes the entry. It is a no-op if the module/level gate rejected
// the entry at construction time.
func (e *Entry) End() {
	if !e.on {
		return
	}
	entry := logger.WithFields(e.fields).WithField("mod", e.mod.String())
	switch e.level {
	case logrus.DebugLevel:
		entry.Debug(e.msg)
	case logrus.InfoLevel:
		entry.Info(e.msg)
	case logrus.WarnLevel:
		entry.Warn(e.msg)
	case logrus.ErrorLevel:
		entry.Error(e.msg)
	}
}
