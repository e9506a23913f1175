package docgen

import (
	"fmt"
	"strings"
)

const (
	maxBulletsPerSlide = 5
	longParagraphChars = 200
)

const (
	nsA = `http://schemas.openxmlformats.org/drawingml/2006/main`
	nsR = `http://schemas.openxmlformats.org/officeDocument/2006/relationships`
	nsP = `http://schemas.openxmlformats.org/presentationml/2006/main`

	relSlide       = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide`
	relSlideLayout = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout`
	relSlideMaster = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster`
	relTheme       = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme`

	ctSlide = `application/vnd.openxmlformats-officedocument.presentationml.slide+xml`
)

// slide is one rendered slide: a title and optional bullet lines.
type slide struct {
	Title    string
	Subtitle string
	Bullets  []string
	Footer   string
}

// bulletCandidates flattens paragraphs into bullet lines. Long paragraphs are split into sentences.
func bulletCandidates(paragraphs []string) []string {
	var out []string
	for _, para := range paragraphs {
		para = strings.Join(strings.Fields(para), " ")
		if len([]rune(para)) <= longParagraphChars {
			out = append(out, para)
			continue
		}
		sentences := strings.Split(para, ". ")
		for i, s := range sentences {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if i < len(sentences)-1 {
				s += "."
			}
			out = append(out, s)
		}
	}
	return out
}

// packSlides builds the title slide followed by content slides of at most maxBulletsPerSlide bullets.
func packSlides(p page) []slide {
	slides := []slide{{
		Title:    p.Title,
		Subtitle: "Generated on " + p.Generated.Format("02/01/2006"),
	}}

	bullets := bulletCandidates(p.Paragraphs)
	for start, part := 0, 1; start < len(bullets); start, part = start+maxBulletsPerSlide, part+1 {
		end := start + maxBulletsPerSlide
		if end > len(bullets) {
			end = len(bullets)
		}
		slides = append(slides, slide{
			Title:   fmt.Sprintf("Content — Part %d", part),
			Bullets: bullets[start:end],
		})
	}

	slides[len(slides)-1].Footer = p.Footer
	return slides
}

func renderPPTX(p page) ([]byte, error) {
	slides := packSlides(p)

	var types, presRels, sldIDs strings.Builder
	for i := range slides {
		n := i + 1
		fmt.Fprintf(&types, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="%s"/>`, n, ctSlide)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, n+2, relSlide, n)
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="rId%d"/>`, 255+n, n+2)
	}

	w := newPackageWriter()
	w.add("[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`+
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`+
		`<Default Extension="xml" ContentType="application/xml"/>`+
		`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`+
		`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`+
		`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`+
		`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`+
		types.String()+
		`</Types>`)
	w.add("_rels/.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>`+
		`</Relationships>`)
	w.add("ppt/presentation.xml", `<p:presentation xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`">`+
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`+
		`<p:sldIdLst>`+sldIDs.String()+`</p:sldIdLst>`+
		`<p:sldSz cx="9144000" cy="6858000" type="screen4x3"/><p:notesSz cx="6858000" cy="9144000"/>`+
		`</p:presentation>`)
	w.add("ppt/_rels/presentation.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+relSlideMaster+`" Target="slideMasters/slideMaster1.xml"/>`+
		`<Relationship Id="rId2" Type="`+relTheme+`" Target="theme/theme1.xml"/>`+
		presRels.String()+
		`</Relationships>`)
	w.add("ppt/slideMasters/slideMaster1.xml", `<p:sldMaster xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`">`+
		`<p:cSld>`+emptyTree+`</p:cSld>`+
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" `+
		`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`+
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>`+
		`</p:sldMaster>`)
	w.add("ppt/slideMasters/_rels/slideMaster1.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+relSlideLayout+`" Target="../slideLayouts/slideLayout1.xml"/>`+
		`<Relationship Id="rId2" Type="`+relTheme+`" Target="../theme/theme1.xml"/>`+
		`</Relationships>`)
	w.add("ppt/slideLayouts/slideLayout1.xml", `<p:sldLayout xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`" type="blank" preserve="1">`+
		`<p:cSld name="Blank">`+emptyTree+`</p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`)
	w.add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+relSlideMaster+`" Target="../slideMasters/slideMaster1.xml"/>`+
		`</Relationships>`)
	w.add("ppt/theme/theme1.xml", pptxTheme)

	for i, s := range slides {
		n := i + 1
		w.add(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(s, i == 0))
		w.add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
			`<Relationship Id="rId1" Type="`+relSlideLayout+`" Target="../slideLayouts/slideLayout1.xml"/>`+
			`</Relationships>`)
	}

	return w.bytes()
}

const emptyTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr></p:spTree>`

func slideXML(s slide, cover bool) string {
	var shapes strings.Builder

	if cover {
		shapes.WriteString(textBox(2, "Title", 457200, 2130425, 8229600, 1470025, []string{s.Title}, 4000, true, false))
		shapes.WriteString(textBox(3, "Subtitle", 914400, 3886200, 7315200, 1752600, []string{s.Subtitle}, 1800, false, false))
	} else {
		shapes.WriteString(textBox(2, "Title", 457200, 274638, 8229600, 1143000, []string{s.Title}, 3200, true, false))
		shapes.WriteString(textBox(3, "Content", 457200, 1600200, 8229600, 4525963, s.Bullets, 1800, false, true))
	}
	if s.Footer != "" {
		shapes.WriteString(textBox(4, "Footer", 457200, 6245225, 8229600, 400000, []string{s.Footer}, 1000, false, false))
	}

	return `<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
		shapes.String() +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func textBox(id int, name string, x, y, cx, cy int, lines []string, size int, bold, bullets bool) string {
	var paras strings.Builder
	for _, line := range lines {
		paras.WriteString(`<a:p>`)
		if bullets {
			paras.WriteString(`<a:pPr marL="342900" indent="-342900"><a:buFont typeface="Arial"/><a:buChar char="•"/></a:pPr>`)
		}
		b := "0"
		if bold {
			b = "1"
		}
		fmt.Fprintf(&paras, `<a:r><a:rPr lang="fr-CA" sz="%d" b="%s" dirty="0"/><a:t>%s</a:t></a:r>`, size, b, esc(line))
		paras.WriteString(`</a:p>`)
	}
	if len(lines) == 0 {
		paras.WriteString(`<a:p><a:endParaRPr lang="fr-CA"/></a:p>`)
	}

	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>%s</p:txBody></p:sp>`,
		id, name, x, y, cx, cy, paras.String())
}

const pptxTheme = `<a:theme xmlns:a="` + nsA + `" name="WikiAI">` +
	`<a:themeElements>` +
	`<a:clrScheme name="WikiAI">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="1F3864"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="366092"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="WikiAI">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="WikiAI">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements>` +
	`</a:theme>`
