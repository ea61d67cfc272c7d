package rtcm

import (
	"math"
	"testing"
	"time"

	"github.com/northfall/gnssmux/pkg/gnssgo"
)

// almostEqual compares two float64 values with a tolerance
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// TestDecodeSSRHeader tests the decoding of SSR headers
func TestDecodeSSRHeader(t *testing.T) {
	// Create a sample SSR message with a valid header
	msg := &RTCMMessage{
		Type:      1057, // GPS orbit correction
		Length:    100,
		Data:      make([]byte, 100),
		Timestamp: time.Now(),
		StationID: 1234,
	}

	// Set header fields in the message data
	// Frame header (24 bits) and message type (12 bits) come first; SSR
	// messages have no station ID
	pos := 36 // Start after header and message type

	// Set epoch time (20 bits)
	gnssgo.SetBitU(msg.Data, pos, 20, 500000)
	pos += 20

	// Set update interval (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 2) // 2 = 5 seconds
	pos += 4

	// Set multiple message flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set satellite reference datum flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set IOD SSR indicator (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 3)
	pos += 4

	// Set SSR provider ID (16 bits)
	gnssgo.SetBitU(msg.Data, pos, 16, 5)
	pos += 16

	// Set SSR solution ID (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 1)
	pos += 4

	// Set number of satellites (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 2)
	pos += 6

	// Set satellite IDs (6 bits each)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6
	gnssgo.SetBitU(msg.Data, pos, 6, 12) // PRN 12
	pos += 6

	// Decode the header
	header, newPos, err := decodeSSRHeader(msg)
	if err != nil {
		t.Fatalf("Failed to decode SSR header: %v", err)
	}

	// Check the decoded values
	if header.MessageType != 1057 {
		t.Errorf("Expected message type 1057, got %d", header.MessageType)
	}
	if header.GNSSID != 0 {
		t.Errorf("Expected GNSS ID 0 (GPS), got %d", header.GNSSID)
	}
	if header.Epoch != 500000 {
		t.Errorf("Expected epoch 500000, got %d", header.Epoch)
	}
	if header.UpdateInterval != 2 {
		t.Errorf("Expected update interval 2, got %d", header.UpdateInterval)
	}
	if header.MultipleMessage {
		t.Errorf("Expected multiple message flag false, got true")
	}
	if header.SatelliteReferenceDatum {
		t.Errorf("Expected satellite reference datum flag false, got true")
	}
	if header.IODSSRIndicator != 3 {
		t.Errorf("Expected IOD SSR indicator 3, got %d", header.IODSSRIndicator)
	}
	if header.SSRProviderID != 5 {
		t.Errorf("Expected SSR provider ID 5, got %d", header.SSRProviderID)
	}
	if header.SolutionID != 1 {
		t.Errorf("Expected SSR solution ID 1, got %d", header.SolutionID)
	}
	if header.NumSatellites != 2 {
		t.Errorf("Expected number of satellites 2, got %d", header.NumSatellites)
	}
	if newPos != pos {
		t.Errorf("Expected position %d, got %d", pos, newPos)
	}
}

// TestDecodeSSRPhaseBias tests the decoding of SSR phase bias messages
func TestDecodeSSRPhaseBias(t *testing.T) {
	// Create a sample SSR phase bias message
	msg := &RTCMMessage{
		Type:      1265, // GPS phase bias
		Length:    150,
		Data:      make([]byte, 150),
		Timestamp: time.Now(),
		StationID: 1234,
	}

	// Set header fields in the message data
	// Frame header (24 bits) and message type (12 bits) come first; SSR
	// messages have no station ID
	pos := 36 // Start after header and message type

	// Set epoch time (20 bits)
	gnssgo.SetBitU(msg.Data, pos, 20, 500000)
	pos += 20

	// Set update interval (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 2) // 2 = 5 seconds
	pos += 4

	// Set multiple message flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set satellite reference datum flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set IOD SSR indicator (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 3)
	pos += 4

	// Set SSR provider ID (16 bits)
	gnssgo.SetBitU(msg.Data, pos, 16, 5)
	pos += 16

	// Set SSR solution ID (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 1)
	pos += 4

	// Set number of satellites (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 1)
	pos += 6

	// Set satellite ID (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Set satellite data
	// Satellite ID (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Number of biases (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 2) // 2 biases
	pos += 5

	// Yaw angle (9 bits)
	gnssgo.SetBitU(msg.Data, pos, 9, 45) // 45 degrees
	pos += 9

	// Yaw rate (8 bits)
	gnssgo.SetBits(msg.Data, pos, 8, 10) // 1.0 degrees/s
	pos += 8

	// Bias 1
	// Signal ID (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 1) // L1C
	pos += 5

	// Integer indicator (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 1) // Integer
	pos += 1

	// Wide-lane integer indicator (2 bits)
	gnssgo.SetBitU(msg.Data, pos, 2, 1) // Wide-lane integer
	pos += 2

	// Discontinuity counter (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 3) // Counter = 3
	pos += 4

	// Phase bias (20 bits)
	gnssgo.SetBits(msg.Data, pos, 20, 1000) // 0.1 m
	pos += 20

	// Bias 2
	// Signal ID (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 2) // L2C
	pos += 5

	// Integer indicator (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0) // Not integer
	pos += 1

	// Wide-lane integer indicator (2 bits)
	gnssgo.SetBitU(msg.Data, pos, 2, 0) // Not wide-lane integer
	pos += 2

	// Discontinuity counter (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 5) // Counter = 5
	pos += 4

	// Phase bias (20 bits)
	gnssgo.SetBits(msg.Data, pos, 20, -500) // -0.05 m
	pos += 20

	// Decode the phase bias message
	phaseBias, err := decodeSSRPhaseBias(msg)
	if err != nil {
		t.Fatalf("Failed to decode SSR phase bias: %v", err)
	}

	// Check the decoded values
	if phaseBias.Header.MessageType != 1265 {
		t.Errorf("Expected message type 1265, got %d", phaseBias.Header.MessageType)
	}
	if phaseBias.Header.NumSatellites != 1 {
		t.Errorf("Expected number of satellites 1, got %d", phaseBias.Header.NumSatellites)
	}
	if len(phaseBias.PhaseBiases) != 1 {
		t.Fatalf("Expected 1 satellite phase bias, got %d", len(phaseBias.PhaseBiases))
	}

	// Check satellite data
	satBias := phaseBias.PhaseBiases[0]
	if satBias.SatID != 5 {
		t.Errorf("Expected satellite ID 5, got %d", satBias.SatID)
	}
	if satBias.NumBiases != 2 {
		t.Errorf("Expected number of biases 2, got %d", satBias.NumBiases)
	}
	if satBias.YawAngle != 45.0*gnssgo.D2R {
		t.Errorf("Expected yaw angle 45 degrees, got %.2f degrees", satBias.YawAngle*gnssgo.R2D)
	}
	if satBias.YawRate != 1.0*gnssgo.D2R {
		t.Errorf("Expected yaw rate 1.0 degrees/s, got %.2f degrees/s", satBias.YawRate*gnssgo.R2D)
	}

	// Check bias 1
	if satBias.SignalIDs[0] != 1 {
		t.Errorf("Expected signal ID 1, got %d", satBias.SignalIDs[0])
	}
	if !satBias.IntegerIndicators[0] {
		t.Errorf("Expected integer indicator true, got false")
	}
	if !satBias.WideLaneIntegerIndicators[0] {
		t.Errorf("Expected wide-lane integer indicator true, got false")
	}
	if satBias.DiscontinuityCounters[0] != 3 {
		t.Errorf("Expected discontinuity counter 3, got %d", satBias.DiscontinuityCounters[0])
	}
	if satBias.PhaseBiases[0] != 0.1 {
		t.Errorf("Expected phase bias 0.1 m, got %.3f m", satBias.PhaseBiases[0])
	}

	// Check bias 2
	if satBias.SignalIDs[1] != 2 {
		t.Errorf("Expected signal ID 2, got %d", satBias.SignalIDs[1])
	}
	if satBias.IntegerIndicators[1] {
		t.Errorf("Expected integer indicator false, got true")
	}
	if satBias.WideLaneIntegerIndicators[1] {
		t.Errorf("Expected wide-lane integer indicator false, got true")
	}
	if satBias.DiscontinuityCounters[1] != 5 {
		t.Errorf("Expected discontinuity counter 5, got %d", satBias.DiscontinuityCounters[1])
	}
	if satBias.PhaseBiases[1] != -0.05 {
		t.Errorf("Expected phase bias -0.05 m, got %.3f m", satBias.PhaseBiases[1])
	}
}

// TestDecodeSSROrbitClockCorrection tests the decoding of SSR orbit and clock correction messages
func TestDecodeSSROrbitClockCorrection(t *testing.T) {
	// Create a sample SSR orbit and clock correction message
	msg := &RTCMMessage{
		Type:      1060, // GPS orbit and clock correction
		Length:    150,
		Data:      make([]byte, 150),
		Timestamp: time.Now(),
		StationID: 1234,
	}

	// Set header fields in the message data
	pos := 36 // Start after header and message type

	// Set epoch time (20 bits)
	gnssgo.SetBitU(msg.Data, pos, 20, 500000)
	pos += 20

	// Set update interval (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 2) // 2 = 5 seconds
	pos += 4

	// Set multiple message flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set satellite reference datum flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set IOD SSR indicator (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 3)
	pos += 4

	// Set SSR provider ID (16 bits)
	gnssgo.SetBitU(msg.Data, pos, 16, 5)
	pos += 16

	// Set SSR solution ID (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 1)
	pos += 4

	// Set number of satellites (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 1)
	pos += 6

	// Set satellite ID (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Set orbit correction for satellite
	// Satellite ID (6 bits), read again by each per-satellite record
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// IODE (8 bits)
	gnssgo.SetBitU(msg.Data, pos, 8, 23)
	pos += 8

	// Delta radial (22 bits)
	gnssgo.SetBits(msg.Data, pos, 22, 1000) // 0.1 mm
	pos += 22

	// Delta along-track (20 bits)
	gnssgo.SetBits(msg.Data, pos, 20, 2000) // 0.4 mm
	pos += 20

	// Delta cross-track (20 bits)
	gnssgo.SetBits(msg.Data, pos, 20, -1000) // 0.4 mm
	pos += 20

	// Dot delta radial (21 bits)
	gnssgo.SetBits(msg.Data, pos, 21, 500) // 0.001 mm/s
	pos += 21

	// Dot delta along-track (19 bits)
	gnssgo.SetBits(msg.Data, pos, 19, -500) // 0.004 mm/s
	pos += 19

	// Dot delta cross-track (19 bits)
	gnssgo.SetBits(msg.Data, pos, 19, 250) // 0.004 mm/s
	pos += 19

	// Set clock correction for satellite
	// Satellite ID (6 bits) - should match the orbit correction satellite
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Delta clock C0 (22 bits)
	gnssgo.SetBits(msg.Data, pos, 22, 5000) // 0.1 mm
	pos += 22

	// Delta clock C1 (21 bits)
	gnssgo.SetBits(msg.Data, pos, 21, 100) // 0.001 mm/s
	pos += 21

	// Delta clock C2 (27 bits)
	gnssgo.SetBits(msg.Data, pos, 27, 10) // 0.00002 mm/s²
	pos += 27

	// Decode the orbit and clock correction message
	correction, err := decodeSSROrbitClockCorrection(msg)
	if err != nil {
		t.Fatalf("Failed to decode SSR orbit and clock correction: %v", err)
	}

	// Check the decoded values
	if correction.Header.MessageType != 1060 {
		t.Errorf("Expected message type 1060, got %d", correction.Header.MessageType)
	}
	if correction.Header.NumSatellites != 1 {
		t.Errorf("Expected number of satellites 1, got %d", correction.Header.NumSatellites)
	}
	if len(correction.OrbitCorrections) != 1 {
		t.Fatalf("Expected 1 orbit correction, got %d", len(correction.OrbitCorrections))
	}
	if len(correction.ClockCorrections) != 1 {
		t.Fatalf("Expected 1 clock correction, got %d", len(correction.ClockCorrections))
	}

	// Check orbit correction
	orb := correction.OrbitCorrections[0]
	if orb.SatID != 5 {
		t.Errorf("Expected satellite ID 5, got %d", orb.SatID)
	}

	expectedIODE := uint8(23)
	if orb.IODE != expectedIODE {
		t.Errorf("Expected IODE %d, got %d", expectedIODE, orb.IODE)
	}

	// Scaling: radial 0.1 mm, along-track and cross-track 0.4 mm per unit.
	// Use approximate comparison for floating point values.

	// Delta radial: 1000 * 0.1 mm = 0.1 m
	expectedRadial := 0.1
	if !almostEqual(orb.DeltaRadial, expectedRadial, 1e-12) {
		t.Errorf("Expected delta radial %.4f m, got %.4f m", expectedRadial, orb.DeltaRadial)
	}

	// Delta along-track: 2000 * 0.4 mm = 0.8 m
	expectedAlongTrack := 0.8
	if !almostEqual(orb.DeltaAlongTrack, expectedAlongTrack, 1e-12) {
		t.Errorf("Expected delta along-track %.4f m, got %.4f m", expectedAlongTrack, orb.DeltaAlongTrack)
	}

	// Delta cross-track: -1000 * 0.4 mm = -0.4 m
	expectedCrossTrack := -0.4
	if !almostEqual(orb.DeltaCrossTrack, expectedCrossTrack, 1e-12) {
		t.Errorf("Expected delta cross-track %.4f m, got %.4f m", expectedCrossTrack, orb.DeltaCrossTrack)
	}

	// Check clock correction
	clk := correction.ClockCorrections[0]

	expectedSatID := uint8(5)
	if clk.SatID != expectedSatID {
		t.Errorf("Expected satellite ID %d, got %d", expectedSatID, clk.SatID)
	}

	// Scaling: C0 0.1 mm, C1 0.001 mm/s, C2 0.00002 mm/s² per unit.

	// Delta clock C0: 5000 * 0.1 mm = 0.5 m
	expectedClockC0 := 0.5
	if !almostEqual(clk.DeltaClockC0, expectedClockC0, 1e-12) {
		t.Errorf("Expected delta clock C0 %.4f m, got %.4f m", expectedClockC0, clk.DeltaClockC0)
	}

	// Delta clock C1: 100 * 0.001 mm/s = 0.0001 m/s
	expectedClockC1 := 0.0001
	if !almostEqual(clk.DeltaClockC1, expectedClockC1, 1e-15) {
		t.Errorf("Expected delta clock C1 %.6f m/s, got %.6f m/s", expectedClockC1, clk.DeltaClockC1)
	}

	// Delta clock C2: 10 * 0.00002 mm/s² = 0.0000002 m/s²
	expectedClockC2 := 0.0000002
	if !almostEqual(clk.DeltaClockC2, expectedClockC2, 1e-18) {
		t.Errorf("Expected delta clock C2 %.10f m/s², got %.10f m/s²", expectedClockC2, clk.DeltaClockC2)
	}
}

// TestDecodeSSRCodeBias tests the decoding of SSR code bias messages
func TestDecodeSSRCodeBias(t *testing.T) {
	// Create a sample SSR code bias message
	msg := &RTCMMessage{
		Type:      1063, // GPS code bias
		Length:    100,
		Data:      make([]byte, 100),
		Timestamp: time.Now(),
		StationID: 1234,
	}

	// Set header fields in the message data
	pos := 36 // Start after header and message type

	// Set epoch time (20 bits)
	gnssgo.SetBitU(msg.Data, pos, 20, 500000)
	pos += 20

	// Set update interval (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 2) // 2 = 5 seconds
	pos += 4

	// Set multiple message flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set satellite reference datum flag (1 bit)
	gnssgo.SetBitU(msg.Data, pos, 1, 0)
	pos += 1

	// Set IOD SSR indicator (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 3)
	pos += 4

	// Set SSR provider ID (16 bits)
	gnssgo.SetBitU(msg.Data, pos, 16, 5)
	pos += 16

	// Set SSR solution ID (4 bits)
	gnssgo.SetBitU(msg.Data, pos, 4, 1)
	pos += 4

	// Set number of satellites (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 1)
	pos += 6

	// Set satellite ID (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Set satellite data
	// Satellite ID (6 bits)
	gnssgo.SetBitU(msg.Data, pos, 6, 5) // PRN 5
	pos += 6

	// Number of biases (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 2) // 2 biases
	pos += 5

	// Bias 1
	// Signal ID (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 1) // L1C
	pos += 5

	// Code bias (14 bits)
	gnssgo.SetBits(msg.Data, pos, 14, 100) // 1.0 m
	pos += 14

	// Bias 2
	// Signal ID (5 bits)
	gnssgo.SetBitU(msg.Data, pos, 5, 2) // L2C
	pos += 5

	// Code bias (14 bits)
	gnssgo.SetBits(msg.Data, pos, 14, -50) // -0.5 m
	pos += 14

	// Decode the code bias message
	codeBias, err := decodeSSRCodeBias(msg)
	if err != nil {
		t.Fatalf("Failed to decode SSR code bias: %v", err)
	}

	// Check the decoded values
	if codeBias.Header.MessageType != 1063 {
		t.Errorf("Expected message type 1063, got %d", codeBias.Header.MessageType)
	}
	if codeBias.Header.NumSatellites != 1 {
		t.Errorf("Expected number of satellites 1, got %d", codeBias.Header.NumSatellites)
	}
	if len(codeBias.CodeBiases) != 1 {
		t.Fatalf("Expected 1 satellite code bias, got %d", len(codeBias.CodeBiases))
	}

	// Check satellite data
	satBias := codeBias.CodeBiases[0]
	if satBias.SatID != 5 {
		t.Errorf("Expected satellite ID 5, got %d", satBias.SatID)
	}
	if satBias.NumBiases != 2 {
		t.Errorf("Expected number of biases 2, got %d", satBias.NumBiases)
	}

	// Check bias 1
	if satBias.SignalIDs[0] != 1 {
		t.Errorf("Expected signal ID 1, got %d", satBias.SignalIDs[0])
	}
	if satBias.CodeBiases[0] != 1.0 {
		t.Errorf("Expected code bias 1.0 m, got %.3f m", satBias.CodeBiases[0])
	}

	// Check bias 2
	if satBias.SignalIDs[1] != 2 {
		t.Errorf("Expected signal ID 2, got %d", satBias.SignalIDs[1])
	}
	if satBias.CodeBiases[1] != -0.5 {
		t.Errorf("Expected code bias -0.5 m, got %.3f m", satBias.CodeBiases[1])
	}
}
