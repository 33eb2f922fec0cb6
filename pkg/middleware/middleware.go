// Package middleware 提供指标服务器使用的 gin 中间件.
package middleware
