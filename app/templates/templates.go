// Package templates renders the markdown bodies the bot posts and sends.
package templates

import (
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Markdown is not HTML, so autoescaping is disabled for every template.
var (
	repostBodyTpl = pongo2.Must(pongo2.FromString(`{% autoescape off %}*Originally posted [here]({{ permalink }}).*

---

{{ body }}{% endautoescape %}`))

	repostNoticeTpl = pongo2.Must(pongo2.FromString(`{% autoescape off %}Hello! Your post [here]({{ original }}) was shared to r/{{ community }}: [view it here]({{ repost }}).

Listings stay up for one week. You do not need to take any action.{% endautoescape %}`))

	expiredNoticeTpl = pongo2.Must(pongo2.FromString(`{% autoescape off %}Your sales thread [{{ id }}](/r/{{ community }}/comments/{{ id }}) is over a week old and has been removed from r/{{ community }}.

You are free to submit it again if the items are still available.{% endautoescape %}`))
)

// RepostBody is the self text of a repost: a link back to the source post
// followed by the original text.
func RepostBody(permalink, body string) (string, error) {
	return render(repostBodyTpl, pongo2.Context{
		"permalink": absolute(permalink),
		"body":      body,
	})
}

// RepostNotice is the direct message telling an author where their post was shared.
func RepostNotice(original, repost, community string) (string, error) {
	return render(repostNoticeTpl, pongo2.Context{
		"original":  absolute(original),
		"repost":    absolute(repost),
		"community": community,
	})
}

func ExpiredNotice(id, community string) (string, error) {
	return render(expiredNoticeTpl, pongo2.Context{
		"id":        id,
		"community": community,
	})
}

// Subject is the direct message subject used for every notice.
func Subject(community string) string {
	return "r/" + community
}

func render(tpl *pongo2.Template, ctx pongo2.Context) (string, error) {
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return out, nil
}

func absolute(permalink string) string {
	if strings.HasPrefix(permalink, "/") {
		return "https://www.reddit.com" + permalink
	}
	return permalink
}
