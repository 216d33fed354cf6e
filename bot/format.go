package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mrinalgaur2005/taskbot/model"
)

func mentionHTML(u model.User) string {
	name := u.DisplayName()
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}

func codeHTML(s string) string {
	return "<code>" + html.EscapeString(s) + "</code>"
}

func bulletList(tasks []string) string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, "• "+codeHTML(t))
	}
	return strings.Join(lines, "\n")
}

func numberedList(tasks []string) string {
	lines := make([]string, 0, len(tasks))
	for i, t := range tasks {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, codeHTML(t)))
	}
	return strings.Join(lines, "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func startText(publicURL string) string {
	var sb strings.Builder
	if publicURL != "" {
		fmt.Fprintf(&sb, "To check if the bot is still running, call %s.\n\n", codeHTML(publicURL+"/healthcheck"))
		fmt.Fprintf(&sb, "To post a custom update, send a POST request to %s with the user ID and task separated by a comma.\n\n", codeHTML(publicURL+"/submittask"))
	}
	sb.WriteString("Commands:\n")
	sb.WriteString("/mytasks - list your open tasks\n")
	sb.WriteString("/complete &lt;task&gt; - mark a task as done (text or number)\n")
	sb.WriteString("/customupdate - submit \"user id,task\" from the chat\n")
	sb.WriteString("/cancel - abort the current dialogue\n")
	sb.WriteString("/assigntask - assign a task to a user (administrator only)")
	return sb.String()
}
