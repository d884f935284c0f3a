package templates

import (
	"fmt"
	"html/template"
	"strings"
)

// LoginCodeProps fills the login code message.
type LoginCodeProps struct {
	Code       string
	TTLMinutes int
}

// GetLoginCodeContent renders the body of the email login message.
func GetLoginCodeContent(props LoginCodeProps) template.HTML {
	var b strings.Builder
	b.WriteString(GetParagraph("Ваш код для входа на сайт Peaky Minds:"))
	b.WriteString(GetCode(props.Code))
	b.WriteString(GetParagraph(fmt.Sprintf("Код действует %d минут. Если вы не запрашивали вход, просто проигнорируйте это письмо.", props.TTLMinutes)))
	return template.HTML(b.String())
}

// Document is a titled link attached to a contract.
type Document struct {
	Title string
	URL   string
}

// ContractProps fills the contract message.
type ContractProps struct {
	Course      string
	FullName    string
	ContractURL string
	KeyPoints   []string
	Documents   []Document
}

// GetContractContent renders the body of the contract message.
func GetContractContent(props ContractProps) template.HTML {
	var b strings.Builder
	b.WriteString(GetParagraph(fmt.Sprintf("Здравствуйте, %s!", props.FullName)))
	b.WriteString(GetParagraph(fmt.Sprintf("Договор обучения по курсу «%s» готов. Ознакомьтесь с ним и подтвердите по ссылке.", props.Course)))
	b.WriteString(GetButton(ButtonProps{Text: "Открыть договор", URL: props.ContractURL}))
	if len(props.KeyPoints) > 0 {
		b.WriteString(GetParagraph("Ключевые пункты:"))
		b.WriteString(GetList(props.KeyPoints))
	}
	if len(props.Documents) > 0 {
		b.WriteString(GetParagraph("Документы:"))
		items := make([]string, 0, len(props.Documents))
		for _, doc := range props.Documents {
			items = append(items, fmt.Sprintf("%s: %s", doc.Title, doc.URL))
		}
		b.WriteString(GetList(items))
	}
	return template.HTML(b.String())
}

// ContractText is the plain-text form used for chat delivery.
func ContractText(props ContractProps) string {
	lines := []string{
		"📄 Договор обучения",
		"Курс: " + props.Course,
		"Участник: " + props.FullName,
		"Ссылка: " + props.ContractURL,
	}
	if len(props.KeyPoints) > 0 {
		lines = append(lines, "", "Ключевые пункты:")
		for _, point := range props.KeyPoints {
			lines = append(lines, "- "+point)
		}
	}
	if len(props.Documents) > 0 {
		lines = append(lines, "", "Документы:")
		for _, doc := range props.Documents {
			lines = append(lines, fmt.Sprintf("- %s: %s", doc.Title, doc.URL))
		}
	}
	return strings.Join(lines, "\n")
}
