package task

import (
	"github.com/smallbiznis/constructtrack/internal/task/service"
	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(service.New),
)
