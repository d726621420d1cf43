package decoder

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

// SpeechRMSThreshold separates signal from silence in simulated mode. Windows
// below it decode to an empty result.
const SpeechRMSThreshold = 1000

// Sales-call phrases in pt-BR, matching the domain the pipeline serves.
var simulatedPhrases = []string{
	"Olá, bom dia! Como vai?",
	"Gostaria de saber mais sobre o produto",
	"Qual é o preço da solução?",
	"Entendi, obrigado pela informação",
	"Vamos marcar uma demonstração?",
	"Preciso falar com o responsável técnico",
	"O orçamento está aprovado para este trimestre",
	"Quando podemos começar o projeto?",
	"Isso está dentro do nosso orçamento",
	"Vamos analisar as opções disponíveis",
	"Qual é o prazo de implementação?",
	"Vocês têm suporte técnico?",
	"Como funciona o processo de contratação?",
	"Quais são os benefícios principais?",
	"Posso falar com alguém da diretoria?",
}

// Simulated produces pseudo-random but plausible transcripts: windows with
// audible energy yield a phrase with confidence around 0.85, silent windows
// yield an empty result.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated decoder seeded from seed, so tests can fix
// the phrase sequence.
func NewSimulated(seed uint64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *Simulated) Decode(_ context.Context, samples []int16, _ int) Result {
	if len(samples) == 0 {
		return Result{}
	}
	if audio.RMS(samples) <= SpeechRMSThreshold {
		return Result{}
	}

	s.mu.Lock()
	phrase := simulatedPhrases[s.rng.IntN(len(simulatedPhrases))]
	confidence := 0.75 + s.rng.Float64()*0.2
	s.mu.Unlock()

	return Result{Text: phrase, Confidence: confidence}
}

func (s *Simulated) IsReal() bool { return false }

func (s *Simulated) Name() string { return "simulated" }
