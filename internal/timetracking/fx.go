package timetracking

import (
	"github.com/smallbiznis/constructtrack/internal/timetracking/repository"
	"github.com/smallbiznis/constructtrack/internal/timetracking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timetracking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
