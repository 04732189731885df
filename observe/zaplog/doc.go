// Package zaplog provides an owner.Observer that writes lifecycle events to a
// zap logger. Reference changes are logged at debug level, disposals at info
// level and disposal failures at error level.
package zaplog
