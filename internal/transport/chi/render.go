package chi

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"net/http"

	"github.com/dbpedia/lookup/internal/domain/search/result"
)

const xmlRootElement = "results"

// jsonEnvelope renders an envelope as {"docs":[{field:[values]}]} keeping
// the record field order.
type jsonEnvelope result.Envelope

type fullValue struct {
	Value     string `json:"value"`
	Highlight string `json:"highlight,omitempty"`
}

func (e jsonEnvelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	key, err := json.Marshal(result.Envelope(e).Key())
	if err != nil {
		return nil, err
	}
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteString(":[")
	for i, rec := range e.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONRecord(&buf, rec); err != nil {
			return nil, err
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func writeJSONRecord(buf *bytes.Buffer, rec result.Record) error {
	buf.WriteByte('{')
	for i, f := range rec.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')

		values := make([]any, 0, len(f.Values))
		for _, v := range f.Values {
			if v.Full {
				values = append(values, fullValue{Value: v.Text, Highlight: v.Highlight})
				continue
			}
			values = append(values, v.Text)
		}
		data, err := json.Marshal(values)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return nil
}

// encodeXML renders an envelope as <results><result><field>value</field></result></results>.
// A non-empty stylesheet is referenced by an xml-stylesheet instruction.
func encodeXML(env result.Envelope, stylesheet string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	if stylesheet != "" {
		var href bytes.Buffer
		if err := xml.EscapeText(&href, []byte(stylesheet)); err != nil {
			return nil, err
		}
		pi := xml.ProcInst{Target: "xml-stylesheet", Inst: []byte(`type="text/xsl" href="` + href.String() + `"`)}
		if err := enc.EncodeToken(pi); err != nil {
			return nil, err
		}
	}

	root := xml.StartElement{Name: xml.Name{Local: xmlRootElement}}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}
	for _, rec := range env.Records {
		el := xml.StartElement{Name: xml.Name{Local: env.Key()}}
		if err := enc.EncodeToken(el); err != nil {
			return nil, err
		}
		for _, f := range rec.Fields {
			for _, v := range f.Values {
				if err := enc.EncodeElement(v.Text, xml.StartElement{Name: xml.Name{Local: f.Name}}); err != nil {
					return nil, err
				}
			}
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXML(w http.ResponseWriter, status int, env result.Envelope, stylesheet string) {
	data, err := encodeXML(env, stylesheet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "render xml: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
