package kis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/papertrader/internal/domain"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorDescription string `json:"error_description"`
}

// envelope carries the result code every quotation response includes
type envelope struct {
	ReturnCode  string `json:"rt_cd"`
	MessageCode string `json:"msg_cd"`
	Message     string `json:"msg1"`
}

func (e envelope) check() error {
	if e.ReturnCode != "0" {
		return fmt.Errorf("%w: rt_cd=%s %s %s", domain.ErrDataUnavailable,
			e.ReturnCode, e.MessageCode, strings.TrimSpace(e.Message))
	}
	return nil
}

type priceResponse struct {
	envelope
	Output struct {
		Price     string `json:"stck_prpr"`
		Change    string `json:"prdy_vrss"`
		ChangePct string `json:"prdy_ctrt"`
		Volume    string `json:"acml_vol"`
		Open      string `json:"stck_oprc"`
		High      string `json:"stck_hgpr"`
		Low       string `json:"stck_lwpr"`
	} `json:"output"`
}

type dailyPriceResponse struct {
	envelope
	Output []dailyRow `json:"output"`
}

type dailyRow struct {
	Date   string `json:"stck_bsop_date"`
	Close  string `json:"stck_clpr"`
	Open   string `json:"stck_oprc"`
	High   string `json:"stck_hgpr"`
	Low    string `json:"stck_lwpr"`
	Volume string `json:"acml_vol"`
}

func (r dailyRow) toBar() (domain.Bar, error) {
	date, err := time.Parse("20060102", strings.TrimSpace(r.Date))
	if err != nil {
		return domain.Bar{}, fmt.Errorf("bad date %q: %w", r.Date, err)
	}
	closePrice, err := parseFloat(r.Close)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("bad close %q: %w", r.Close, err)
	}

	bar := domain.Bar{Date: date, Close: closePrice}
	// the remaining fields are informational; blanks decode as zero
	bar.Open, _ = parseFloat(r.Open)
	bar.High, _ = parseFloat(r.High)
	bar.Low, _ = parseFloat(r.Low)
	bar.Volume, _ = parseInt(r.Volume)
	return bar, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
