// Package logging provides config-driven categorized logging for aispverify.
// Every category shares one zap core; categories can be switched off
// individually and debug output is only emitted when debug mode is on.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config loading
	CategorySolver     Category = "solver"     // External solver processes and sessions
	CategorySMT        Category = "smt"        // Encoding, verification engine, aggregation
	CategoryCompliance Category = "compliance" // Reference compliance phases
	CategoryKernel     Category = "kernel"     // Mangle layer-composition kernel
	CategoryStore      Category = "store"      // Proof cache
	CategoryBatch      Category = "batch"      // Parallel document verification
	CategoryWatch      Category = "watch"      // Filesystem watch loop
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, text
	DebugMode  bool            // forces debug level
	Categories map[string]bool // per-category toggles, missing = enabled
}

// Logger is a category-scoped sugared zap logger.
// A Logger with a nil sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	base      = zap.NewNop()
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	options   Options
	optionsMu sync.RWMutex
)

// Initialize builds the shared zap logger from opts.
// Safe to call more than once; previously handed out loggers keep working
// but new calls to Get pick up the new core.
func Initialize(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.DebugMode {
		level = zapcore.DebugLevel
	}

	var zcfg zap.Config
	if opts.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	optionsMu.Lock()
	options = opts
	optionsMu.Unlock()

	SetBase(logger)
	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", level, zcfg.Encoding)
	return nil
}

// SetBase replaces the shared zap logger. The CLI hands in the logger it
// configured in PersistentPreRunE; tests hand in an observer core.
func SetBase(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	base = logger
	loggers = make(map[Category]*Logger)
}

// Base returns the shared zap logger.
func Base() *zap.Logger {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optionsMu.RLock()
	defer optionsMu.RUnlock()

	if options.Categories == nil {
		return true
	}
	enabled, exists := options.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Enabled reports whether this logger writes anything at all.
func (l *Logger) Enabled() bool {
	return l.sugar != nil
}

// Sync flushes buffered entries. Errors from syncing stderr on some
// platforms are ignored.
func Sync() {
	if err := Base().Sync(); err != nil && !isStdSyncError(err) {
		fmt.Fprintf(os.Stderr, "[logging] sync failed: %v\n", err)
	}
}

func isStdSyncError(err error) bool {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Path == "/dev/stderr" || pe.Path == "/dev/stdout"
	}
	return false
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// SolverDebug logs debug to the solver category
func SolverDebug(format string, args ...interface{}) {
	Get(CategorySolver).Debug(format, args...)
}

// SolverWarn logs a warning to the solver category
func SolverWarn(format string, args ...interface{}) {
	Get(CategorySolver).Warn(format, args...)
}

// SMT logs to the smt category
func SMT(format string, args ...interface{}) {
	Get(CategorySMT).Info(format, args...)
}

// SMTDebug logs debug to the smt category
func SMTDebug(format string, args ...interface{}) {
	Get(CategorySMT).Debug(format, args...)
}

// Compliance logs to the compliance category
func Compliance(format string, args ...interface{}) {
	Get(CategoryCompliance).Info(format, args...)
}

// ComplianceWarn logs a warning to the compliance category
func ComplianceWarn(format string, args ...interface{}) {
	Get(CategoryCompliance).Warn(format, args...)
}

// KernelDebug logs debug to the kernel category
func KernelDebug(format string, args ...interface{}) {
	Get(CategoryKernel).Debug(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Batch logs to the batch category
func Batch(format string, args ...interface{}) {
	Get(CategoryBatch).Info(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if threshold > 0 && elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
