// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供黄金/外汇分析服务的可执行入口。

# 概述

cmd/goldservice 是服务的可执行入口，提供 HTTP API 服务、数据库迁移、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、结构化日志
（zap）以及 Prometheus 指标采集。

# 核心类型

  - Server          — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware       — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（数据库迁移）、version、health
  - 中间件链：Recovery、RequestLogger、MetricsMiddleware、OTelTracing、
    CORS、RequestID、SecurityHeaders
  - 依赖装配：store → auth → priceagg（黄金/外汇）→ cache → llmclient →
    audit → prompt → pipeline → admin → httpapi 的构造顺序
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → Wait
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
