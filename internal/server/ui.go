package server

import (
	"encoding/base64"
	"net/http"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/KaramelBytes/dqcheck/internal/utils"
)

const pageCSS = `body{font-family:system-ui,sans-serif;max-width:72rem;margin:2rem auto;padding:0 1rem;color:#1f2328}
.panes{display:grid;grid-template-columns:1fr 1fr;gap:1rem}
pre{background:#f6f8fa;padding:1rem;border-radius:6px;overflow:auto;white-space:pre-wrap}
.error{color:#cf222e}
img{max-width:100%;border:1px solid #d0d7de;border-radius:6px}`

func renderHTML(w http.ResponseWriter, status int, node Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func jsonIndent(v any) (string, error) {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func layout(title string, body ...Node) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title)),
			StyleEl(Raw(pageCSS)),
		),
		Body(Main(Group(body))),
	)
}

func uploadForm() Node {
	return Form(
		Method("post"),
		Action("/analyze"),
		Attr("enctype", "multipart/form-data"),
		Label(For("file"), Text("Upload CSV")),
		Input(Type("file"), ID("file"), Name("file"), Accept(".csv,.tsv,.psv,.txt,text/csv"), Required()),
		Button(Type("submit"), Text("Analyze Data Quality")),
	)
}

func indexPage(errMsg string) Node {
	content := []Node{
		H1(Text("Data Quality Analyzer")),
		P(Text("Upload a delimited text file to check missing values, duplicate rows and structural expectations.")),
	}
	if errMsg != "" {
		content = append(content, P(Class("error"), Text("Error: "+errMsg)))
	}
	content = append(content, uploadForm())
	return layout("Data Quality Analyzer", content...)
}

func resultPage(name, summaryJSON, validation string, chart []byte) Node {
	var chartNode Node = P(Text("No chart available."))
	if chart != nil {
		chartNode = Img(
			Src("data:image/png;base64,"+base64.StdEncoding.EncodeToString(chart)),
			Alt("Missing Values per Column"),
		)
	}
	return layout("Results | Data Quality Analyzer",
		H1(Text("Data Quality Analyzer")),
		P(Text("File: "+name)),
		Div(Class("panes"),
			Section(H2(Text("Data Quality Summary")), Pre(ID("summary"), Text(summaryJSON))),
			Section(H2(Text("Validation Results")), Pre(ID("validation"), Text(validation))),
		),
		Section(H2(Text("Missing Values Chart")), chartNode),
		uploadForm(),
	)
}
