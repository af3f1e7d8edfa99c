package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		adminCommandTotal,
		usersBannedTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
		[]string{"scope"},
	)

	adminCommandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_command_total",
			Help: "Tracks attempts to use admin and owner commands.",
		},
		[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
	)

	usersBannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_moderated_total",
			Help: "Ban and unban actions performed by admins.",
		},
		[]string{"action"},
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered(scope string) {
	telegramRateLimitTriggeredTotal.WithLabelValues(norm(scope)).Inc()
}

func IncAdminCommand(command, status string) {
	adminCommandTotal.WithLabelValues(norm(command), norm(status)).Inc()
}

func IncModeration(action string) {
	usersBannedTotal.WithLabelValues(norm(action)).Inc()
}
