package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	bulletNumID       = 1
	bulletAbstractID  = 0
	orderedAbstractID = 1
)

// RenderDOCX writes tokens as a WordprocessingML package.
func RenderDOCX(tokens []Token) ([]byte, error) {
	body, lists := documentBody(tokens)
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + wmlNamespace + `" xmlns:r="` + relNamespace + `"><w:body>` +
		body +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`

	if err := validateDocumentXMLStructure(documentXML); err != nil {
		return nil, err
	}

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"docProps/core.xml", corePropsXML(time.Now().UTC())},
		{"word/document.xml", documentXML},
		{"word/styles.xml", stylesXML()},
		{"word/numbering.xml", numberingXML(lists)},
		{"word/_rels/document.xml.rels", documentRelsXML},
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	for _, part := range parts {
		if err := writeZipPart(writer, part.name, []byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// orderedList records the numbering instance of an ordered list and where it starts.
type orderedList struct {
	numID int
	start int
}

func documentBody(tokens []Token) (string, []orderedList) {
	var (
		b     strings.Builder
		lists []orderedList
	)
	nextNumID := bulletNumID + 1
	for _, tok := range tokens {
		switch tok.Kind {
		case KindBlank:
		case KindHeading:
			level := tok.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading` + strconv.Itoa(level) + `"/></w:pPr>`)
			writeRuns(&b, ParseInline(tok.Text))
			b.WriteString(`</w:p>`)
		case KindParagraph:
			b.WriteString(`<w:p>`)
			writeRuns(&b, ParseInline(tok.Text))
			b.WriteString(`</w:p>`)
		case KindList:
			var numID int
			for _, item := range tok.Items {
				id := bulletNumID
				if item.Ordinal > 0 {
					if numID == 0 {
						numID = nextNumID
						nextNumID++
						lists = append(lists, orderedList{numID: numID, start: item.Ordinal})
					}
					id = numID
				}
				level := item.Level
				if level > 8 {
					level = 8
				}
				b.WriteString(`<w:p><w:pPr><w:pStyle w:val="ListParagraph"/><w:numPr>`)
				b.WriteString(`<w:ilvl w:val="` + strconv.Itoa(level) + `"/><w:numId w:val="` + strconv.Itoa(id) + `"/>`)
				b.WriteString(`</w:numPr></w:pPr>`)
				writeRuns(&b, ParseInline(item.Text))
				b.WriteString(`</w:p>`)
			}
		case KindRule:
			b.WriteString(`<w:p><w:pPr><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr></w:pPr></w:p>`)
		case KindCode:
			b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Code"/><w:shd w:val="clear" w:color="auto" w:fill="` + CodeFill + `"/></w:pPr>`)
			b.WriteString(`<w:r><w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New" w:cs="Courier New"/></w:rPr>`)
			writeLines(&b, tok.Text)
			b.WriteString(`</w:r></w:p>`)
		default:
			b.WriteString(`<w:p><w:r>`)
			writeLines(&b, tok.Text)
			b.WriteString(`</w:r></w:p>`)
		}
	}
	return b.String(), lists
}

func writeRuns(b *strings.Builder, spans []Span) {
	for _, sp := range spans {
		b.WriteString(`<w:r>`)
		if sp.Bold || sp.Italic {
			b.WriteString(`<w:rPr>`)
			if sp.Bold {
				b.WriteString(`<w:b/>`)
			}
			if sp.Italic {
				b.WriteString(`<w:i/>`)
			}
			b.WriteString(`</w:rPr>`)
		}
		writeText(b, sp.Text)
		b.WriteString(`</w:r>`)
	}
}

// writeLines emits text elements separated by line breaks inside the current run.
func writeLines(b *strings.Builder, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		writeText(b, line)
	}
}

func writeText(b *strings.Builder, text string) {
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t>`)
}

func writeZipPart(writer *zip.Writer, name string, content []byte) error {
	dst, err := writer.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

// validateDocumentXMLStructure rejects nested paragraphs and run properties
// that follow run text; Word refuses to open either.
func validateDocumentXMLStructure(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []xml.Name
	type runState struct {
		seenText bool
	}
	var runs []runState

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("document.xml parse failed: %w\n%s", err, firstLines(xmlText, 5))
		}
		switch t := token.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			if isWmlElement(t.Name, "p") {
				for i := len(stack) - 2; i >= 0; i-- {
					if isWmlElement(stack[i], "p") {
						return fmt.Errorf("document.xml has nested <w:p>\n%s", firstLines(xmlText, 5))
					}
				}
			}
			if isWmlElement(t.Name, "r") {
				runs = append(runs, runState{})
			}
			if isWmlElement(t.Name, "t") && len(runs) > 0 {
				runs[len(runs)-1].seenText = true
			}
			if isWmlElement(t.Name, "rPr") && len(runs) > 0 && runs[len(runs)-1].seenText {
				return fmt.Errorf("document.xml has <w:rPr> after <w:t> in a run\n%s", firstLines(xmlText, 5))
			}
		case xml.EndElement:
			if isWmlElement(t.Name, "r") && len(runs) > 0 {
				runs = runs[:len(runs)-1]
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

func isWmlElement(name xml.Name, local string) bool {
	return name.Local == local && name.Space == wmlNamespace
}

func firstLines(text string, count int) string {
	if count <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > count {
		lines = lines[:count]
	}
	return strings.Join(lines, "\n")
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>` +
	`</Relationships>`

func corePropsXML(now time.Time) string {
	stamp := now.Format(time.RFC3339)
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:creator>jobassist</dc:creator>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

func stylesXML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:styles xmlns:w="` + wmlNamespace + `">`)
	b.WriteString(`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/>`)
	b.WriteString(`<w:sz w:val="` + strconv.Itoa(halfPoints(BodySize)) + `"/><w:color w:val="` + BodyColor + `"/></w:rPr></w:rPrDefault>`)
	b.WriteString(`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="276" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>`)
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>`)
	for level := 1; level <= 6; level++ {
		style := HeadingStyle(level)
		id := "Heading" + strconv.Itoa(level)
		b.WriteString(`<w:style w:type="paragraph" w:styleId="` + id + `"><w:name w:val="heading ` + strconv.Itoa(level) + `"/>`)
		b.WriteString(`<w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>`)
		b.WriteString(`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="` + strconv.Itoa(level-1) + `"/></w:pPr>`)
		b.WriteString(`<w:rPr><w:b/><w:sz w:val="` + strconv.Itoa(halfPoints(style.SizePt)) + `"/><w:color w:val="` + style.Color + `"/></w:rPr></w:style>`)
	}
	b.WriteString(`<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/>`)
	b.WriteString(`<w:pPr><w:spacing w:after="60"/><w:contextualSpacing/></w:pPr></w:style>`)
	b.WriteString(`<w:style w:type="paragraph" w:styleId="Code"><w:name w:val="Code"/><w:basedOn w:val="Normal"/>`)
	b.WriteString(`<w:pPr><w:spacing w:after="120" w:line="240" w:lineRule="auto"/></w:pPr>`)
	b.WriteString(`<w:rPr><w:rFonts w:ascii="Courier New" w:hAnsi="Courier New" w:cs="Courier New"/><w:sz w:val="` + strconv.Itoa(halfPoints(CodeSize)) + `"/></w:rPr></w:style>`)
	b.WriteString(`</w:styles>`)
	return b.String()
}

func numberingXML(lists []orderedList) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:numbering xmlns:w="` + wmlNamespace + `">`)
	writeAbstractNum(&b, bulletAbstractID, func(int) (string, string) { return "bullet", "•" })
	writeAbstractNum(&b, orderedAbstractID, func(level int) (string, string) {
		return "decimal", "%" + strconv.Itoa(level+1) + "."
	})
	b.WriteString(`<w:num w:numId="` + strconv.Itoa(bulletNumID) + `"><w:abstractNumId w:val="` + strconv.Itoa(bulletAbstractID) + `"/></w:num>`)
	for _, l := range lists {
		b.WriteString(`<w:num w:numId="` + strconv.Itoa(l.numID) + `"><w:abstractNumId w:val="` + strconv.Itoa(orderedAbstractID) + `"/>`)
		b.WriteString(`<w:lvlOverride w:ilvl="0"><w:startOverride w:val="` + strconv.Itoa(l.start) + `"/></w:lvlOverride></w:num>`)
	}
	b.WriteString(`</w:numbering>`)
	return b.String()
}

func writeAbstractNum(b *strings.Builder, id int, format func(level int) (string, string)) {
	b.WriteString(`<w:abstractNum w:abstractNumId="` + strconv.Itoa(id) + `"><w:multiLevelType w:val="hybridMultilevel"/>`)
	for level := 0; level < 9; level++ {
		numFmt, text := format(level)
		indent := 720 * (level + 1)
		b.WriteString(`<w:lvl w:ilvl="` + strconv.Itoa(level) + `"><w:start w:val="1"/><w:numFmt w:val="` + numFmt + `"/>`)
		b.WriteString(`<w:lvlText w:val="` + text + `"/><w:lvlJc w:val="left"/>`)
		b.WriteString(`<w:pPr><w:ind w:left="` + strconv.Itoa(indent) + `" w:hanging="360"/></w:pPr></w:lvl>`)
	}
	b.WriteString(`</w:abstractNum>`)
}
