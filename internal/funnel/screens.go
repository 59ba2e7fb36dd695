package funnel

import (
	"fmt"

	"github.com/Tombirdi473/telegrambot/internal/chat"
)

// Config carries the funnel's external links and content knobs. Values come
// from YAML or environment at startup.
type Config struct {
	RegistrationURL string `yaml:"registration_url" envconfig:"REGISTRATION_URL"`
	HelpContact     string `yaml:"help_contact" envconfig:"HELP_CONTACT"`
	ChannelName     string `yaml:"channel_name" envconfig:"CHANNEL_USERNAME"`
	InstructionURL  string `yaml:"instruction_url" envconfig:"INSTRUCTION_URL"`
	PromoCode       string `yaml:"promo_code" envconfig:"PROMO_CODE"`
	AssetsDir       string `yaml:"assets_dir" envconfig:"ASSETS_DIR"`
}

// Action tags carried by funnel screen buttons. The router maps them back to
// service methods one-to-one.
const (
	ActionRegister        = "register"
	ActionRegistered      = "registered"
	ActionExitInstruction = "exit_instruction"
	ActionBackToStart     = "back_to_start"
	ActionSubscribed      = "subscribed"
	ActionSignal1Done     = "signal1_success"
	ActionDepositReady    = "deposit_ready"
	ActionSignal2Next     = "signal2_next"
	ActionNewSignals      = "new_signals"
)

// Signal image file names, resolved against Config.AssetsDir.
const (
	assetSignal1 = "signal1.png"
	assetSignal2 = "signal2.png"
	assetSignal3 = "signal3.png"
)

func menuScreen(cfg Config) (string, [][]chat.Button) {
	text := fmt.Sprintf(
		"🪜 <b>Step 1 — Register</b>\n\n"+
			"To sync with the bot you need to create a fresh account strictly via the link inside the bot and apply the promo code:\n\n"+
			"🎁 <b>Promo code: 👉 %s 👈</b>\n\n"+
			"If the link lands you in an old account:\n"+
			"🔹 Sign out of the old account\n"+
			"🔹 Close the site\n"+
			"🔹 Open the site again via the bot button\n"+
			"🔹 Complete registration with the promo code 💎",
		cfg.PromoCode,
	)
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "📝 Register", Action: ActionRegister}),
		chat.Row(chat.Button{Text: "📖 Sign-out guide", Action: ActionExitInstruction}),
		chat.Row(chat.Button{Text: "❓ Help", URL: "https://t.me/" + cfg.HelpContact}),
	}
	return text, buttons
}

func registrationScreen(cfg Config) (string, [][]chat.Button) {
	text := fmt.Sprintf(
		"🌐 Follow the link to register and use the promo code:\n\n🎁 <b>%s</b>",
		cfg.PromoCode,
	)
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "🔗 Open registration", URL: cfg.RegistrationURL}),
		chat.Row(
			chat.Button{Text: "✅ I registered", Action: ActionRegistered},
			chat.Button{Text: "⬅️ Back", Action: ActionBackToStart},
		),
	}
	return text, buttons
}

func subscriptionScreen(cfg Config) (string, [][]chat.Button) {
	text := "✅ <b>Your account is now synced with the bot!</b>\n\n" +
		"To receive the first signal, subscribe to our channel 👇"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "📢 Open channel", URL: "https://t.me/" + cfg.ChannelName}),
		chat.Row(chat.Button{Text: "✅ Subscribed", Action: ActionSubscribed}),
		chat.Row(chat.Button{Text: "⬅️ Back", Action: ActionBackToStart}),
	}
	return text, buttons
}

func exitInstructionScreen(cfg Config) (string, [][]chat.Button) {
	text := "📖 Tap the button below to open the guide, then come back 👇"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "📘 Open guide", URL: cfg.InstructionURL}),
		chat.Row(chat.Button{Text: "⬅️ Back", Action: ActionBackToStart}),
	}
	return text, buttons
}

func signal1Screen() (string, [][]chat.Button) {
	text := "✅ Great, here is your first signal!\n\n" +
		"🚨 Follow the pattern on the picture above and close the cells exactly as shown 💥"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "✅ Signal worked, go to #2", Action: ActionSignal1Done}),
	}
	return text, buttons
}

func depositScreen() (string, [][]chat.Button) {
	text := "💰 To unlock the second signal, top up your account balance 💵"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "✅ Done", Action: ActionDepositReady}),
	}
	return text, buttons
}

func signal2Screen() (string, [][]chat.Button) {
	text := "2️⃣ <b>Second signal delivered!</b>\n\n" +
		"🚨 Repeat the pattern on the picture above, exactly as shown 🎯"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "➡️ Go to signal #3", Action: ActionSignal2Next}),
	}
	return text, buttons
}

func signal3Screen() (string, [][]chat.Button) {
	text := "3️⃣ <b>THIRD SIGNAL</b>\n\n" +
		"🚨 Restart the game, then close the cells exactly as shown on the picture 💎"
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "🔄 Get new signals", Action: ActionNewSignals}),
	}
	return text, buttons
}

func cycleResetScreen() (string, [][]chat.Button) {
	text := "⏰ New signals unlock in 24 hours.\n\nYou can go back to the start menu any time."
	buttons := [][]chat.Button{
		chat.Row(chat.Button{Text: "⬅️ Back to start", Action: ActionBackToStart}),
	}
	return text, buttons
}
