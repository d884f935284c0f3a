package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetButtonRejectsUnsafeURL(t *testing.T) {
	t.Parallel()

	html := GetButton(ButtonProps{Text: "Go", URL: "javascript:alert(1)"})
	assert.Contains(t, html, `href="#"`)
	assert.NotContains(t, html, "javascript")

	html = GetButton(ButtonProps{Text: "Go", URL: "https://peakyminds.school/contract/abc"})
	assert.Contains(t, html, `href="https://peakyminds.school/contract/abc"`)
}

func TestGetParagraphEscapes(t *testing.T) {
	t.Parallel()

	html := GetParagraph("<b>hi</b>")
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
}

func TestLoginCodeEmail(t *testing.T) {
	t.Parallel()

	content := GetLoginCodeContent(LoginCodeProps{Code: "042917", TTLMinutes: 10})
	page := GetEmailLayout(EmailLayoutProps{Content: content, Preheader: "Код входа"})

	assert.Contains(t, page, "042917")
	assert.Contains(t, page, "10 минут")
	assert.Contains(t, page, "<title>Peaky Minds</title>")
}

func TestContractText(t *testing.T) {
	t.Parallel()

	text := ContractText(ContractProps{
		Course:      "Python",
		FullName:    "Иван Петров",
		ContractURL: "https://peakyminds.school/contract/tok",
		KeyPoints:   []string{"Оплата помесячно"},
		Documents:   []Document{{Title: "Оферта", URL: "https://peakyminds.school/documents/offer.pdf"}},
	})

	lines := strings.Split(text, "\n")
	assert.Equal(t, "📄 Договор обучения", lines[0])
	assert.Contains(t, lines, "Курс: Python")
	assert.Contains(t, lines, "- Оплата помесячно")
	assert.Contains(t, lines, "- Оферта: https://peakyminds.school/documents/offer.pdf")
}
