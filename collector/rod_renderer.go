package collector

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	Logger "github.com/JamisonProctor/planz/utils/log"
)

const navigationStatusScript = `() => {
	const nav = performance.getEntriesByType("navigation")[0];
	return nav && nav.responseStatus ? nav.responseStatus : 0;
}`

// RodRenderer fetches pages through headless Chrome so that client side
// rendered listings expose their content. The browser is launched on first use
// and shared by later fetches until Close.
type RodRenderer struct {
	// RemoteUrl is the websocket url of an already running Chrome. Empty
	// launches a local headless one.
	RemoteUrl string

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

func NewRodRenderer(remoteUrl string) *RodRenderer {
	return &RodRenderer{RemoteUrl: remoteUrl}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	wsUrl := r.RemoteUrl
	if wsUrl == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(err, "fail to launch headless chrome")
		}
		wsUrl = u
		r.lnch = l
	}

	b := rod.New().ControlURL(wsUrl)
	if err := b.Connect(); err != nil {
		return nil, errors.Wrap(err, "fail to connect to chrome")
	}
	r.browser = b
	Logger.Log.WithField("control_url", wsUrl).Info("headless renderer connected")
	return b, nil
}

func (r *RodRenderer) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	b, err := r.connect()
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, errors.Wrap(err, "fail to open tab")
	}
	defer page.Close()

	p := page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return nil, errors.Wrapf(err, "fail to navigate to %s", url)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, errors.Wrapf(err, "fail to load %s", url)
	}

	status := 0
	if res, err := p.Eval(navigationStatusScript); err == nil {
		status = res.Value.Int()
	}
	if status == 0 {
		status = 200
	}

	html, err := p.HTML()
	if err != nil {
		return nil, errors.Wrapf(err, "fail to read rendered dom of %s", url)
	}

	result := &FetchResult{Url: url, Text: html, StatusCode: status}
	if IsNon2xxHttpStatus(status) {
		return result, &HttpStatusError{Url: url, StatusCode: status}
	}
	return result, nil
}

// Close shuts the browser down. The renderer relaunches it on next Fetch.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}
