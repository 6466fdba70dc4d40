package cli

import (
	"medintake/internal/agent"
	"medintake/internal/config"
	"medintake/internal/intake"
	"medintake/internal/observability"
	"medintake/internal/platform/telegram"
	"medintake/internal/records"
	"medintake/internal/report"
)

// buildService wires the controller the same way for the server and the
// chat command.
func buildService(c *config.Config, store *records.SQLStore) intake.Service {
	log := observability.Logger()
	tools := agent.NewToolbox(store)

	var runner agent.Runner
	opts := []intake.Option{intake.WithMaxNegotiationRounds(c.MaxNegotiationRounds)}

	if c.UseMockLLM {
		log.Info("using offline crew")
		runner = agent.NewOfflineCrew(tools)
	} else {
		api := agent.NewOpenAIClient(c.OpenAIKey, c.OpenAIBaseURL)
		runner = agent.NewCrew(api, c.ChatModel, tools)
		opts = append(opts, intake.WithSpeech(
			agent.NewWhisperClient(api),
			agent.NewSpeechClient(api, c.TTSVoice),
		))
		log.Info("using model crew", "model", c.ChatModel)
	}

	if c.TelegramToken != "" && c.DoctorChatID != 0 {
		tg := telegram.NewClient(c.TelegramToken)
		opts = append(opts, intake.WithNotifier(report.NewService(tg, c.DoctorChatID, store, c.ReportFontPath)))
		log.Info("appointment reports enabled", "chat_id", c.DoctorChatID)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN or DOCTOR_CHAT_ID not set, appointment reports disabled")
	}

	return intake.NewService(runner, intake.NewPatternExtractor(store), opts...)
}
