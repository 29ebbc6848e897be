package service

import (
	"html"
	"strings"

	"factcheck_gateway/internal/model"
)

const (
	ParseModeHTML = "HTML"

	promptText       = "Please send a message. I can help you with fact-checking and more!"
	routingErrorText = "Sorry, I encountered an error. Please try again."
	verifyErrorText  = "Sorry, I could not verify that claim. Please try again with a different query."
)

var verdictEmoji = map[model.Verdict]string{
	model.VerdictFalse:      "❌",
	model.VerdictTrue:       "✅",
	model.VerdictMisleading: "⚠️",
	model.VerdictUnverified: "❓",
}

// replyFormatter знает разметку конкретной платформы
type replyFormatter struct {
	parseMode string
	bold      func(string) string
	escape    func(string) string
}

func formatterFor(platform model.Platform) replyFormatter {
	switch platform {
	case model.PlatformWhatsApp:
		return replyFormatter{
			bold:   func(s string) string { return "*" + s + "*" },
			escape: func(s string) string { return s },
		}
	case model.PlatformDiscord:
		return replyFormatter{
			bold:   func(s string) string { return "**" + s + "**" },
			escape: func(s string) string { return s },
		}
	default:
		return replyFormatter{
			parseMode: ParseModeHTML,
			bold:      func(s string) string { return "<b>" + s + "</b>" },
			escape:    html.EscapeString,
		}
	}
}

func (f replyFormatter) reply(text string) model.Reply {
	return model.Reply{Text: text, Options: model.ReplyOptions{ParseMode: f.parseMode}}
}

func plainReply(text string) model.Reply {
	return model.Reply{Text: text}
}

func (f replyFormatter) factCheckReply(result *model.VerificationResult) model.Reply {
	emoji, ok := verdictEmoji[result.Verdict]
	if !ok {
		emoji = verdictEmoji[model.VerdictUnverified]
	}

	var b strings.Builder
	b.WriteString(emoji + " " + f.bold("Fact-Check Result") + "\n\n")
	b.WriteString("Status: " + f.bold(strings.ToUpper(string(result.Verdict))) + "\n")
	b.WriteString("\n" + f.escape(result.Explanation))

	if result.SourceURL != "" {
		b.WriteString("\n\nSource: " + f.escape(result.SourceURL))
	}
	if len(result.EvidenceLinks) > 0 {
		b.WriteString("\n\nEvidence: " + f.escape(result.EvidenceLinks[0]))
	}

	return f.reply(b.String())
}

func (f replyFormatter) sosReply() model.Reply {
	return f.reply("🚨 " + f.bold("Emergency Support") + "\n\n" +
		"If you're in immediate danger, please:\n" +
		"1. Call emergency services: 911 (or your local emergency number)\n" +
		"2. Get to a safe location\n" +
		"3. Contact trusted friends or family\n\n" +
		"For support resources, please contact local authorities or support organizations.")
}

func questionReply() model.Reply {
	return plainReply("I understand you have a question. The AI-powered cultural education feature is coming soon!\n\n" +
		"For now, I can help you with:\n" +
		"• Fact-checking claims\n" +
		"• Emergency support (type \"help\" or \"sos\")")
}

func (f replyFormatter) greetingReply() model.Reply {
	return f.reply("👋 " + f.bold("Hello! I'm Walansi Kontonbile") + "\n\n" +
		"I can help you with:\n" +
		"• " + f.bold("Fact-checking") + " - Send me a claim to verify\n" +
		"• " + f.bold("Emergency support") + " - Type \"help\" or \"sos\"\n" +
		"• " + f.bold("Questions") + " - Ask me anything (coming soon)\n\n" +
		"How can I assist you?")
}
