// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

// Mailer sends a best-effort failure e-mail when a run ends in a
// surfaced error. Grounded on cmd/eda-ctl/main.go's alertMail, adapted
// from "per-file alert count" polling to "send once per run-ending
// error." A send failure is logged, never fatal: spec.md doesn't mention
// alerting at all, so it inherits the least-surprising propagation policy
// (never worse than recoverable/logged).
type Mailer struct {
	user, pass, server string
	port               int
	targets            []string
}

// MailerFromEnv builds a Mailer from the same environment variables
// cmd/eda-ctl reads (MAIL_USERNAME, MAIL_PASSWORD, MAIL_SERVER, MAIL_PORT,
// MAIL_TGTS). If required variables are missing, ok is false and alerting
// is silently disabled.
func MailerFromEnv() (m *Mailer, ok bool) {
	user := os.Getenv("MAIL_USERNAME")
	pass := os.Getenv("MAIL_PASSWORD")
	server := os.Getenv("MAIL_SERVER")
	port, _ := strconv.Atoi(os.Getenv("MAIL_PORT"))
	targets := strings.Split(os.Getenv("MAIL_TGTS"), ",")

	if user == "" || pass == "" || server == "" || port == 0 || len(targets) == 0 || targets[0] == "" {
		return nil, false
	}
	return &Mailer{user: user, pass: pass, server: server, port: port, targets: targets}, true
}

// AlertRunFailed sends a best-effort alert about runNum ending with err.
// A failure to send is logged to stderr, never returned, since alerting
// must never block or fail the run it is reporting on.
func (m *Mailer) AlertRunFailed(campaignNum, runNum int, cause error) {
	if m == nil {
		return
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.user)
	msg.SetHeader("Bcc", m.targets...)
	msg.SetHeader("Subject", fmt.Sprintf("[wavedaq] run camp%d/run%d ended in error", campaignNum, runNum))
	msg.SetBody("text/plain", fmt.Sprintf("campaign: %d\nrun: %d\nerror: %+v", campaignNum, runNum, cause))

	dialer := mail.NewDialer(m.server, m.port, m.user, m.pass)
	dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	if err := dialer.DialAndSend(msg); err != nil {
		fmt.Fprintf(os.Stderr, "runctl: could not send failure alert: %+v\n", err)
	}
}
