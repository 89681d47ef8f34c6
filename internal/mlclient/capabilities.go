package mlclient

import "context"

// TransactionFeatures carries the transaction attributes the model scores on.
type TransactionFeatures struct {
	Amount      float64 `json:"amount"`
	Location    string  `json:"location,omitempty"`
	Type        string  `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
	Frequency   int     `json:"frequency,omitempty"`
}

// HistoryEntry is a prior transaction passed as model context.
type HistoryEntry struct {
	Amount    float64 `json:"amount"`
	Type      string  `json:"type,omitempty"`
	Country   string  `json:"country,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// FraudDetection is the model's verdict on a single transaction.
type FraudDetection struct {
	Score           int      `json:"score"`
	Fraudulent      bool     `json:"fraudulent"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

// FraudExplanation extends the verdict with feature attributions.
type FraudExplanation struct {
	FraudDetection
	TopFeatures []struct {
		Feature      string  `json:"feature"`
		Contribution float64 `json:"contribution"`
	} `json:"topFeatures,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// AnomalyResult is the model's anomaly detection output.
type AnomalyResult struct {
	IsAnomaly    bool    `json:"isAnomaly"`
	AnomalyScore float64 `json:"anomalyScore"`
	Threshold    float64 `json:"threshold"`
}

// DetectFraud asks the model service to score a transaction.
// A (nil, nil) return means the service is unreachable.
func (c *Client) DetectFraud(ctx context.Context, tx TransactionFeatures, history []HistoryEntry) (*FraudDetection, error) {
	req := struct {
		Transaction TransactionFeatures `json:"transaction"`
		UserHistory []HistoryEntry      `json:"user_history,omitempty"`
	}{tx, history}

	var out FraudDetection
	ok, err := c.post(ctx, "/api/fraud/detect", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// ExplainFraud asks the model service for feature attributions.
func (c *Client) ExplainFraud(ctx context.Context, tx TransactionFeatures, history []HistoryEntry) (*FraudExplanation, error) {
	req := struct {
		Transaction TransactionFeatures `json:"transaction"`
		UserHistory []HistoryEntry      `json:"user_history,omitempty"`
	}{tx, history}

	var out FraudExplanation
	ok, err := c.post(ctx, "/api/fraud/explain", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// DetectAnomaly runs the model's anomaly detector on a transaction.
func (c *Client) DetectAnomaly(ctx context.Context, tx TransactionFeatures, history []HistoryEntry) (*AnomalyResult, error) {
	req := struct {
		Transaction TransactionFeatures `json:"transaction"`
		UserHistory []HistoryEntry      `json:"user_history,omitempty"`
	}{tx, history}

	var out AnomalyResult
	ok, err := c.post(ctx, "/api/fraud/anomaly", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// ForecastPrediction is one day of a delegated forecast.
type ForecastPrediction struct {
	Date            string  `json:"date"`
	PredictedAmount float64 `json:"predictedAmount"`
	Confidence      float64 `json:"confidence"`
}

// Forecast is the model service's forecast response.
type Forecast struct {
	Predictions []ForecastPrediction `json:"predictions"`
	Accuracy    float64              `json:"accuracy"`
	Model       string               `json:"model"`
}

// DefaultRisk is the model service's default-risk response.
type DefaultRisk struct {
	Score       float64  `json:"score"`
	Level       string   `json:"level"`
	Factors     []string `json:"factors"`
	Probability float64  `json:"probability"`
}

// GenerateForecast asks the model service for a spending/income projection.
func (c *Client) GenerateForecast(ctx context.Context, userID, period string, months int, historical []HistoryEntry) (*Forecast, error) {
	req := struct {
		UserID         string         `json:"userId,omitempty"`
		Period         string         `json:"period"`
		Months         int            `json:"months"`
		HistoricalData []HistoryEntry `json:"historical_data,omitempty"`
	}{userID, period, months, historical}

	var out Forecast
	ok, err := c.post(ctx, "/api/forecast/generate", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// CalculateDefaultRisk asks the model service for a default-risk estimate.
func (c *Client) CalculateDefaultRisk(ctx context.Context, userID string, transactions []HistoryEntry, averageIncome float64) (*DefaultRisk, error) {
	req := struct {
		UserID        string         `json:"userId"`
		Transactions  []HistoryEntry `json:"transactions"`
		AverageIncome float64        `json:"averageIncome"`
	}{userID, transactions, averageIncome}

	var out DefaultRisk
	ok, err := c.post(ctx, "/api/forecast/default-risk", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// KYCVerification is the model service's document verification result.
type KYCVerification struct {
	Verified bool    `json:"verified"`
	Score    float64 `json:"score"`
	Checks   struct {
		DocumentValid    bool `json:"documentValid"`
		FaceMatch        bool `json:"faceMatch"`
		InformationMatch bool `json:"informationMatch"`
	} `json:"checks"`
	Recommendations []string       `json:"recommendations"`
	ExtractedFields map[string]any `json:"extractedFields,omitempty"`
}

// VerifyKYC delegates document verification. There is no local fallback for
// KYC: an unreachable service yields (nil, nil) and the caller reports the
// verification as unavailable.
func (c *Client) VerifyKYC(ctx context.Context, userID, documentType, documentNumber, documentImage, faceImage string) (*KYCVerification, error) {
	req := struct {
		UserID         string `json:"userId"`
		DocumentType   string `json:"documentType"`
		DocumentNumber string `json:"documentNumber,omitempty"`
		DocumentImage  string `json:"documentImage,omitempty"`
		FaceImage      string `json:"faceImage,omitempty"`
	}{userID, documentType, documentNumber, documentImage, faceImage}

	var out KYCVerification
	ok, err := c.post(ctx, "/api/kyc/verify", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// OCRResult is the model service's document text extraction result.
type OCRResult struct {
	Success       bool           `json:"success"`
	ExtractedText map[string]any `json:"extractedText,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
}

// ExtractText delegates document OCR.
func (c *Client) ExtractText(ctx context.Context, documentImage, documentType string) (*OCRResult, error) {
	req := struct {
		DocumentImage string `json:"documentImage"`
		DocumentType  string `json:"documentType"`
	}{documentImage, documentType}

	var out OCRResult
	ok, err := c.post(ctx, "/api/kyc/ocr", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// FaceMatch is the model service's face comparison result.
type FaceMatch struct {
	Success bool    `json:"success"`
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
}

// MatchFace delegates face comparison between a document and a selfie.
func (c *Client) MatchFace(ctx context.Context, documentImage, faceImage string) (*FaceMatch, error) {
	req := struct {
		DocumentImage string `json:"documentImage"`
		FaceImage     string `json:"faceImage"`
	}{documentImage, faceImage}

	var out FaceMatch
	ok, err := c.post(ctx, "/api/kyc/face-match", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// SimulationResult is the model service's simulation output.
type SimulationResult struct {
	Output  map[string]any `json:"output"`
	Metrics struct {
		Accuracy float64 `json:"accuracy"`
		Loss     float64 `json:"loss"`
		Duration float64 `json:"duration"`
	} `json:"metrics"`
}

// ProcessSimulation delegates simulation processing.
func (c *Client) ProcessSimulation(ctx context.Context, name string, data any, simType string, parameters map[string]any) (*SimulationResult, error) {
	req := struct {
		Name       string         `json:"name,omitempty"`
		Data       any            `json:"data"`
		Type       string         `json:"type,omitempty"`
		Parameters map[string]any `json:"parameters,omitempty"`
	}{name, data, simType, parameters}

	var out SimulationResult
	ok, err := c.post(ctx, "/api/simulation/process", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}

// ChatReply is the model service's assistant response.
type ChatReply struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"userId,omitempty"`
}

// SendChatMessage delegates an assistant conversation turn.
func (c *Client) SendChatMessage(ctx context.Context, message, userID string, chatCtx map[string]any) (*ChatReply, error) {
	req := struct {
		Message string         `json:"message"`
		UserID  string         `json:"userId,omitempty"`
		Context map[string]any `json:"context,omitempty"`
	}{message, userID, chatCtx}

	var out ChatReply
	ok, err := c.post(ctx, "/api/chat/message", req, &out)
	if !ok {
		return nil, err
	}
	return &out, nil
}
