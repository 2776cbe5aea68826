package source

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pion/opus"
	"github.com/pion/rtp"

	"github.com/arzzra/playout/pkg/playout"
)

// Проверка на соответствие интерфейсу во время компиляции
var _ playout.MediaEngine = (*RTPSource)(nil)

// Codec кодек полезной нагрузки RTP потока
type Codec int

const (
	// CodecL16 несжатый PCM 16 bit little-endian в полезной нагрузке
	CodecL16 Codec = iota
	// CodecOpus полезная нагрузка Opus, декодируется pion/opus
	CodecOpus
)

// размер выходного буфера декодера Opus: 40ms при 48kHz,
// с запасом покрывает типичные 10/20ms кадры
const opusScratchBytes = 1920 * playout.BytesPerSample

// RTPSourceConfig параметры RTP источника
type RTPSourceConfig struct {
	// FrameSizeBytes размер кадра playout движка (Config.FrameSizeBytes())
	FrameSizeBytes int

	// Codec формат полезной нагрузки входящих пакетов
	Codec Codec

	// MaxBufferedFrames ограничение накопления: при переполнении
	// отбрасываются самые старые кадры. 0 означает 50 кадров (500ms).
	MaxBufferedFrames int
}

// RTPSourceStatistics статистика RTP источника
type RTPSourceStatistics struct {
	PacketsReceived uint64
	PacketsLost     uint64
	PacketsLate     uint64
	FramesDropped   uint64
	Underflows      uint64
	BufferedFrames  int
}

// RTPSource медиа движок, собирающий 10ms кадры из входящего RTP потока.
//
// Принимает депакетизированные *rtp.Packet от транспортного слоя
// (транспорт и jitter компенсация сети вне зоны ответственности playout
// ядра), декодирует полезную нагрузку и накапливает PCM в байтовом FIFO.
// AcquirePlayoutFrame нарезает FIFO на кадры фиксированного размера;
// при недоборе наружу уходит тишина, при переполнении отбрасываются
// самые старые кадры.
type RTPSource struct {
	config RTPSourceConfig

	mu  sync.Mutex
	buf []byte

	// opusScratch переиспользуемый буфер декодера, чтобы не аллоцировать
	// на каждый пакет
	opusScratch []byte
	opusDecoder opus.Decoder

	lastSeq     uint16
	expectedSeq uint16
	gotFirst    bool

	packetsReceived atomic.Uint64
	packetsLost     atomic.Uint64
	packetsLate     atomic.Uint64
	framesDropped   atomic.Uint64
	underflows      atomic.Uint64

	active atomic.Bool
}

// NewRTPSource создает RTP источник для кадров указанного размера
func NewRTPSource(config RTPSourceConfig) (*RTPSource, error) {
	if config.FrameSizeBytes <= 0 {
		return nil, fmt.Errorf("некорректный размер кадра: %d", config.FrameSizeBytes)
	}
	if config.MaxBufferedFrames <= 0 {
		config.MaxBufferedFrames = 50
	}

	s := &RTPSource{
		config: config,
		buf:    make([]byte, 0, config.FrameSizeBytes*config.MaxBufferedFrames),
	}
	if config.Codec == CodecOpus {
		s.opusDecoder = opus.NewDecoder()
		s.opusScratch = make([]byte, opusScratchBytes)
	}
	s.active.Store(true)
	return s, nil
}

// Push принимает очередной RTP пакет от транспортного слоя.
// Потокобезопасен относительно AcquirePlayoutFrame.
func (s *RTPSource) Push(packet *rtp.Packet) error {
	if packet == nil {
		return fmt.Errorf("нулевой RTP пакет")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trackSequence(packet.SequenceNumber)
	s.packetsReceived.Add(1)

	pcm, err := s.decodePayload(packet.Payload)
	if err != nil {
		return err
	}

	s.buf = append(s.buf, pcm...)

	// Ограничиваем накопление: самые старые кадры отбрасываются целиком
	maxBytes := s.config.FrameSizeBytes * s.config.MaxBufferedFrames
	if len(s.buf) > maxBytes {
		dropBytes := len(s.buf) - maxBytes
		dropFrames := (dropBytes + s.config.FrameSizeBytes - 1) / s.config.FrameSizeBytes
		s.buf = s.buf[dropFrames*s.config.FrameSizeBytes:]
		s.framesDropped.Add(uint64(dropFrames))
	}
	return nil
}

// decodePayload преобразует полезную нагрузку пакета в PCM байты.
// Вызывается под s.mu; возвращаемый срез для Opus действителен только
// до следующего вызова (переиспользуемый scratch буфер).
func (s *RTPSource) decodePayload(payload []byte) ([]byte, error) {
	switch s.config.Codec {
	case CodecL16:
		return payload, nil
	case CodecOpus:
		_, _, err := s.opusDecoder.Decode(payload, s.opusScratch)
		if err != nil {
			return nil, fmt.Errorf("декодирование opus не удалось: %w", err)
		}
		return s.opusScratch, nil
	default:
		return nil, fmt.Errorf("неизвестный кодек: %d", s.config.Codec)
	}
}

// trackSequence учитывает потерянные и поздние пакеты по sequence number.
// Вызывается под s.mu.
func (s *RTPSource) trackSequence(seq uint16) {
	if !s.gotFirst {
		s.gotFirst = true
		s.lastSeq = seq
		s.expectedSeq = seq + 1
		return
	}

	if seq != s.expectedSeq {
		if isSeqNewer(seq, s.expectedSeq) {
			s.packetsLost.Add(uint64(seqDiff(seq, s.expectedSeq)))
		} else {
			s.packetsLate.Add(1)
		}
	}
	s.lastSeq = seq
	s.expectedSeq = seq + 1
}

// AcquirePlayoutFrame выдает очередной кадр из FIFO.
// При недоборе кадр заполняется тишиной (underflow учитывается).
func (s *RTPSource) AcquirePlayoutFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) < len(frame) {
		clear(frame)
		s.underflows.Add(1)
		return
	}
	copy(frame, s.buf[:len(frame)])
	s.buf = s.buf[len(frame):]
}

// WantsAudioSignal сообщает, активен ли источник
func (s *RTPSource) WantsAudioSignal() bool {
	return s.active.Load()
}

// SetActive включает или выключает выдачу аудио
func (s *RTPSource) SetActive(active bool) {
	s.active.Store(active)
}

// Statistics возвращает срез статистики источника
func (s *RTPSource) Statistics() RTPSourceStatistics {
	s.mu.Lock()
	buffered := len(s.buf) / s.config.FrameSizeBytes
	s.mu.Unlock()

	return RTPSourceStatistics{
		PacketsReceived: s.packetsReceived.Load(),
		PacketsLost:     s.packetsLost.Load(),
		PacketsLate:     s.packetsLate.Load(),
		FramesDropped:   s.framesDropped.Load(),
		Underflows:      s.underflows.Load(),
		BufferedFrames:  buffered,
	}
}

// isSeqNewer проверяет, является ли seq1 новее seq2 (с учетом wrap-around)
func isSeqNewer(seq1, seq2 uint16) bool {
	return ((seq1 > seq2) && (seq1-seq2 < 32768)) ||
		((seq1 < seq2) && (seq2-seq1 > 32768))
}

// seqDiff вычисляет разность между sequence numbers (с учетом wrap-around)
func seqDiff(newer, older uint16) uint16 {
	if newer >= older {
		return newer - older
	}
	return newer + (^older + 1)
}
