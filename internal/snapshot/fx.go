package snapshot

import "go.uber.org/fx"

var Module = fx.Module("snapshot.service",
	fx.Provide(New),
)
