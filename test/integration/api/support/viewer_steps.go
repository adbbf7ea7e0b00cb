package support

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/kyclens/internal/server"
)

const viewerWait = 5 * time.Second

// iOpenTheViewerForTheDocument dials the viewer websocket of the last
// processed document.
func (testCtx *TestContext) iOpenTheViewerForTheDocument() error {
	if err := testCtx.ensureServer(); err != nil {
		return err
	}
	url := "ws" + strings.TrimPrefix(testCtx.Server.URL, "http") +
		"/api/v1/documents/" + testCtx.DocumentID + "/viewer"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to open viewer: %w", err)
	}
	testCtx.Viewer = conn
	return nil
}

func (testCtx *TestContext) send(msg server.ViewerMessage) error {
	if testCtx.Viewer == nil {
		return fmt.Errorf("viewer is not open")
	}
	return testCtx.Viewer.WriteJSON(msg)
}

// readUntil reads viewer messages until match accepts one.
func (testCtx *TestContext) readUntil(what string, match func(server.ViewerMessage) bool) error {
	if testCtx.Viewer == nil {
		return fmt.Errorf("viewer is not open")
	}
	if err := testCtx.Viewer.SetReadDeadline(time.Now().Add(viewerWait)); err != nil {
		return err
	}
	for {
		var msg server.ViewerMessage
		if err := testCtx.Viewer.ReadJSON(&msg); err != nil {
			return fmt.Errorf("no %s received: %w", what, err)
		}
		if match(msg) {
			testCtx.LastMessage = msg
			return nil
		}
	}
}

// iShouldReceiveAMessage waits for a message of the given type.
func (testCtx *TestContext) iShouldReceiveAMessage(kind string) error {
	return testCtx.readUntil(kind+" message", func(m server.ViewerMessage) bool { return m.Type == kind })
}

// iShouldReceiveAnOverlayForPageWithRects waits for a matching overlay.
func (testCtx *TestContext) iShouldReceiveAnOverlayForPageWithRects(page, n int) error {
	return testCtx.readUntil(fmt.Sprintf("overlay for page %d with %d rects", page, n), func(m server.ViewerMessage) bool {
		return m.Type == "overlay" && m.Page == page && len(m.Rects) == n
	})
}

// iResizeTheViewerTo reports a new rendered page size.
func (testCtx *TestContext) iResizeTheViewerTo(width, height float64) error {
	return testCtx.send(server.ViewerMessage{Type: "viewport", Width: width, Height: height})
}

// iShowPage switches the visible page.
func (testCtx *TestContext) iShowPage(page int) error {
	return testCtx.send(server.ViewerMessage{Type: "page", Page: page})
}

// iClearTheViewer drops the viewer's document.
func (testCtx *TestContext) iClearTheViewer() error {
	return testCtx.send(server.ViewerMessage{Type: "clear"})
}

// iLoadDocumentInTheViewer asks the viewer to fetch another document.
func (testCtx *TestContext) iLoadDocumentInTheViewer(id string) error {
	if id == "{id}" {
		id = testCtx.DocumentID
	}
	return testCtx.send(server.ViewerMessage{Type: "load", DocumentID: id})
}

// theReadyMessageShouldReportPages checks the page count sent on connect.
func (testCtx *TestContext) theReadyMessageShouldReportPages(n int) error {
	if testCtx.LastMessage.Type != "ready" {
		return fmt.Errorf("last message is %q, not ready", testCtx.LastMessage.Type)
	}
	if testCtx.LastMessage.PageCount != n {
		return fmt.Errorf("expected %d pages, got %d", n, testCtx.LastMessage.PageCount)
	}
	return nil
}

// rectShouldBe checks a rectangle of the last overlay message.
func (testCtx *TestContext) rectShouldBe(i int, key string, x, y, w, h float64) error {
	rects := testCtx.LastMessage.Rects
	if i < 0 || i >= len(rects) {
		return fmt.Errorf("rect %d out of range (have %d)", i, len(rects))
	}
	r := rects[i]
	if r.Key != key {
		return fmt.Errorf("rect %d: expected key %q, got %q", i, key, r.Key)
	}
	for _, c := range []struct {
		name      string
		got, want float64
	}{{"x", r.X, x}, {"y", r.Y, y}, {"width", r.Width, w}, {"height", r.Height, h}} {
		if math.Abs(c.got-c.want) > 1e-6 {
			return fmt.Errorf("rect %d: expected %s %v, got %v", i, c.name, c.want, c.got)
		}
	}
	return nil
}

// theErrorMessageShouldMention checks the text of the last error message.
func (testCtx *TestContext) theErrorMessageShouldMention(text string) error {
	if testCtx.LastMessage.Type != "error" {
		return fmt.Errorf("last message is %q, not error", testCtx.LastMessage.Type)
	}
	if !strings.Contains(testCtx.LastMessage.Message, text) {
		return fmt.Errorf("expected error to mention %q, got %q", text, testCtx.LastMessage.Message)
	}
	return nil
}

// RegisterViewerSteps registers the websocket viewer step definitions.
func (testCtx *TestContext) RegisterViewerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I open the viewer for the document$`, testCtx.iOpenTheViewerForTheDocument)
	sc.Step(`^I should receive an? "([^"]*)" message$`, testCtx.iShouldReceiveAMessage)
	sc.Step(`^I should receive an overlay for page (\d+) with (\d+) rects?$`, testCtx.iShouldReceiveAnOverlayForPageWithRects)
	sc.Step(`^I resize the viewer to (\d+)x(\d+)$`, testCtx.iResizeTheViewerTo)
	sc.Step(`^I show page (\d+)$`, testCtx.iShowPage)
	sc.Step(`^I clear the viewer$`, testCtx.iClearTheViewer)
	sc.Step(`^I load document "([^"]*)" in the viewer$`, testCtx.iLoadDocumentInTheViewer)
	sc.Step(`^the ready message should report (\d+) pages$`, testCtx.theReadyMessageShouldReportPages)
	sc.Step(`^rect (\d+) should be "([^"]*)" at (-?[\d.]+),(-?[\d.]+) sized (-?[\d.]+)x(-?[\d.]+)$`, testCtx.rectShouldBe)
	sc.Step(`^the error message should mention "([^"]*)"$`, testCtx.theErrorMessageShouldMention)
}
