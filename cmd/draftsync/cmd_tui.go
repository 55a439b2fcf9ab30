package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	draftsync "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/audio"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/autosave"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/config"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/conversation"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/guided"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/speechtotext/deepgram"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/telemetry"
)

var (
	audioPath       string
	audioFormat     string
	audioSampleRate int
	guidedFlag      bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Edit the draft interactively",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&audioPath, "audio", "", "raw audio file to stream through Deepgram as the voice channel")
	tuiCmd.Flags().StringVar(&audioFormat, "audio-format", string(audio.DefaultFormat), "audio encoding: linear16, mulaw or alaw")
	tuiCmd.Flags().IntVar(&audioSampleRate, "audio-rate", audio.DefaultSampleRate, "audio sample rate")
	tuiCmd.Flags().BoolVar(&guidedFlag, "guided", false, "ask for one field at a time")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	msgs := make(chan tea.Msg, 64)
	send := func(msg tea.Msg) {
		select {
		case msgs <- msg:
		default:
		}
	}

	opts := []draftsync.SessionOption{
		draftsync.WithSchema(cfg.Schema),
		draftsync.WithPolicy(cfg.Policy),
		draftsync.WithControllerOptions(
			conversation.WithIdleTimeout(cfg.IdleTimeout),
			conversation.WithMetrics(telemetry.NewOTelMetrics(nil)),
			conversation.WithErrorHandler(func(err error) { send(errMsg{err}) }),
		),
		draftsync.WithOnDraftChanged(func(version int, fields []string) { send(draftChangedMsg{version, fields}) }),
		draftsync.WithOnTurnCompleted(func(event events.TurnCompleted) { send(turnCompletedMsg{event}) }),
		draftsync.WithOnPolicyChanged(func(policy syncstore.InputPolicy) { send(policyChangedMsg{policy}) }),
		draftsync.WithOnSync(func(outcome conversation.Outcome, err error) { send(syncMsg{outcome, err}) }),
		draftsync.WithOnGuidedResult(func(result guided.Result, err error) { send(guidedMsg{result, err}) }),
	}
	if !cfg.AutoSync {
		opts = append(opts, draftsync.WithoutAutoSync())
	}
	if cfg.Guided || guidedFlag {
		opts = append(opts, draftsync.WithGuidedFlow())
	}

	if cfg.Autosave.Enabled {
		backend, err := autosave.OpenBadger(autosave.BadgerConfig{Path: cfg.Autosave.Path})
		if err != nil {
			return err
		}
		defer backend.Close()
		opts = append(opts, draftsync.WithAutosave(backend, cfg.DocID,
			autosave.WithDelay(cfg.Autosave.Delay),
			autosave.WithErrorHandler(func(err error) { send(errMsg{err}) })))
	}

	voiceOpts, closeAudio, err := voiceOptions(cfg)
	if err != nil {
		return err
	}
	defer closeAudio()
	opts = append(opts, voiceOpts...)

	session := draftsync.New(cfg.Endpoint, opts...)
	if err := session.Start(cmd.Context()); err != nil {
		session.Close(context.Background())
		return err
	}

	_, err = tea.NewProgram(newModel(session, msgs), tea.WithAltScreen()).Run()
	return errors.Join(err, session.Close(context.Background()))
}

func voiceOptions(cfg *config.Config) ([]draftsync.SessionOption, func(), error) {
	if audioPath == "" {
		return nil, func() {}, nil
	}
	if cfg.Deepgram.APIKey == "" {
		return nil, nil, errors.New("streaming audio needs DEEPGRAM_API_KEY")
	}

	format, err := audio.ParseFormat(audioFormat)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audio: %w", err)
	}

	client := deepgram.NewTranscriptionClient(cfg.Deepgram.APIKey,
		deepgram.WithListenURL(cfg.Deepgram.ListenURL),
		deepgram.WithModel(cfg.Deepgram.Model),
		deepgram.WithLanguage(cfg.Deepgram.Language))
	input := audio.NewFileInput(file, audio.EncodingInfo{SampleRate: audioSampleRate, Format: format})

	opts := []draftsync.SessionOption{
		draftsync.WithSpeechToTextClient(client, "file-"+cfg.DocID),
		draftsync.WithAudioInput(input),
	}
	return opts, func() { file.Close() }, nil
}
