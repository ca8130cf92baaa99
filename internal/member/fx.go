package member

import (
	"github.com/gymdesk/gymdesk/internal/member/repository"
	"github.com/gymdesk/gymdesk/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
