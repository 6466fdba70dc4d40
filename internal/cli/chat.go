package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"medintake/internal/intake"
	"medintake/internal/observability"
)

const chatWidth = 78

var reDesiredSlot = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(\d{1,2}:\d{2})$`)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		Run:   runChat,
	}
	cmd.Flags().Bool("verbose", false, "Show every task output, not only the final answer")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	// The REPL owns stdout.
	observability.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	store, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer store.Close()
	svc := buildService(cfg, store)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "salir",
	})
	if err != nil {
		exitErr("readline", err)
	}
	defer rl.Close()
	out := rl.Stdout()

	ask := func(prompt string) (string, bool) {
		rl.SetPrompt(prompt)
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", false
		}
		return strings.TrimSpace(line), err == nil
	}

	fmt.Fprintln(out, wrap("Hola, soy el asistente médico de la clínica. Te haré unas preguntas para orientarte y agendar tu cita.", chatWidth))

	var patient intake.PatientIntake
	var ok bool
	if patient.Name, ok = ask("Nombre: "); !ok {
		return
	}
	for patient.Age <= 0 {
		raw, ok := ask("Edad: ")
		if !ok {
			return
		}
		patient.Age, _ = strconv.Atoi(raw)
	}
	if patient.Phone, ok = ask("Teléfono (opcional): "); !ok {
		return
	}
	if patient.Symptoms, ok = ask("¿Qué síntomas tienes? "); !ok {
		return
	}

	in := intake.TurnInput{Stage: intake.StageTriage, Patient: patient}
	for {
		res, err := svc.Advance(cmd.Context(), in)
		if err != nil {
			fmt.Fprintln(out, wrap("Error: "+err.Error(), chatWidth))
			if in.Stage == intake.StageTriage {
				return
			}
		} else {
			printTurn(out, res, verbose)
			if res.Stage == intake.StageFinalized {
				return
			}
			in.Stage, in.Context = res.Stage, res.Context
		}

		prompt := "> "
		if in.Stage == intake.StageConfirm {
			prompt = "(sí / no / AAAA-MM-DD HH:MM) > "
		}
		reply, ok := ask(prompt)
		if !ok {
			return
		}
		in.Reply, in.DesiredDate, in.DesiredTime = splitReply(reply)
	}
}

// splitReply recognizes a requested date and time typed as the whole reply.
func splitReply(reply string) (text, date, hour string) {
	m := reDesiredSlot.FindStringSubmatch(reply)
	if m == nil {
		return reply, "", ""
	}
	hour = m[2]
	if len(hour) == 4 {
		hour = "0" + hour
	}
	return reply, m[1], hour
}

func printTurn(w io.Writer, res *intake.TurnResult, verbose bool) {
	if res.Output == nil {
		fmt.Fprintln(w, wrap(res.Message, chatWidth))
		return
	}
	if verbose {
		for i, t := range res.Output.Tasks {
			fmt.Fprintf(w, "[%d %s]\n%s\n", i+1, t.Role, wrap(t.Raw, chatWidth))
		}
		return
	}
	fmt.Fprintln(w, wrap(res.Output.Raw, chatWidth))
}

// wrap breaks text on spaces so no line exceeds width terminal cells.
// Existing line breaks are kept.
func wrap(text string, width int) string {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		col := 0
		for j, word := range strings.Fields(line) {
			ww := runewidth.StringWidth(word)
			if j > 0 {
				if col+1+ww > width {
					b.WriteByte('\n')
					col = 0
				} else {
					b.WriteByte(' ')
					col++
				}
			}
			b.WriteString(word)
			col += ww
		}
	}
	return b.String()
}
