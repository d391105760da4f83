package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"dance-school-crm/internal/models/config"
	"dance-school-crm/internal/notify"
	"dance-school-crm/internal/repository"
	attendance_repo "dance-school-crm/internal/repository/attendance"
	group_repo "dance-school-crm/internal/repository/group"
	room_repo "dance-school-crm/internal/repository/room"
	series_repo "dance-school-crm/internal/repository/series"
	session_repo "dance-school-crm/internal/repository/session"
	student_repo "dance-school-crm/internal/repository/student"
	trainer_repo "dance-school-crm/internal/repository/trainer"
	"dance-school-crm/internal/service"
	attendance_service "dance-school-crm/internal/service/attendance"
	schedule_service "dance-school-crm/internal/service/schedule"
	series_service "dance-school-crm/internal/service/series"
	"dance-school-crm/internal/web"
	database "dance-school-crm/pkg"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newClock() service.Clock {
	return time.Now
}

func newHTTPServer(lc fx.Lifecycle, handler *web.Handler, cfg *config.Config, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("🚀 HTTP сервер запущен", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("🛑 Останавливаем HTTP сервер")
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

func closeDB(lc fx.Lifecycle, db *sqlx.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			newLogger,
			database.NewPostgres,
			newClock,

			repository.NewTxRunner,
			session_repo.NewSessionRepository,
			series_repo.NewSeriesRepository,
			attendance_repo.NewAttendanceRepository,
			group_repo.NewGroupRepository,
			trainer_repo.NewTrainerRepository,
			student_repo.NewStudentRepository,
			room_repo.NewRoomRepository,

			notify.NewTelegramNotifier,
			schedule_service.NewScheduleService,
			series_service.NewSeriesService,
			attendance_service.NewAttendanceService,
			web.NewHandler,
		),
		fx.Invoke(closeDB, newHTTPServer),
	).Run()
}
