package bill

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/pennapps-tabby/tabby-demo/internal/split"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		interpreter *mockInterpreter
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	rebuild := func() {
		service = NewService(db, interpreter, storage, "")
		server = NewServerWithMux(service, http.NewServeMux())
		setupServer()
	}

	assignedBill := func(id string) *Bill {
		bill := parsedBill(id)
		bill.Splits = split.Compute(
			bill.SplitItems(),
			[]split.Assignment{
				{ItemID: 0, AssignedTo: []string{"Alice"}},
				{ItemID: 1, AssignedTo: []string{"Alice", "Bob"}},
			},
			[]string{"Alice", "Bob"},
			bill.Tax, bill.Tip,
		)
		return bill
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		interpreter = newMockInterpreter()
		rebuild()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleHealth", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should report healthy", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var response map[string]string
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
			Expect(response["status"]).To(Equal("healthy"))
		})
	})

	Describe("handleUploadReceipt", func() {
		postReceipt := func(filename string) *http.Response {
			var b bytes.Buffer
			writer := multipart.NewWriter(&b)
			part, _ := writer.CreateFormFile("file", filename)
			part.Write([]byte("fake image data"))
			writer.Close()

			resp, err := http.Post(ghttpServer.URL()+"/api/upload-receipt", writer.FormDataContentType(), &b)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("upload succeeds", func() {
			It("should return status Created", func() {
				resp := postReceipt("receipt.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			})

			It("should return the parsed bill with a bill_id", func() {
				resp := postReceipt("receipt.jpg")
				defer resp.Body.Close()
				var response map[string]json.RawMessage
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response).To(HaveKey("bill_id"))
				Expect(response).To(HaveKey("restaurant_name"))
				Expect(response).To(HaveKey("items"))
				Expect(string(response["subtotal"])).To(Equal("8"))
			})

			It("should set Content-Type to application/json", func() {
				resp := postReceipt("receipt.jpg")
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})

			It("should set CORS headers", func() {
				resp := postReceipt("receipt.jpg")
				defer resp.Body.Close()
				Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})

		When("the file is not an image or PDF", func() {
			It("should return status Bad Request", func() {
				resp := postReceipt("notes.txt")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()

				resp, err := http.Post(ghttpServer.URL()+"/api/upload-receipt", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the interpreter fails", func() {
			BeforeEach(func() {
				interpreter.interpretErr = errors.New("vision model unavailable")
				rebuild()
			})

			It("should return status Bad Gateway", func() {
				resp := postReceipt("receipt.jpg")
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				resp.Body.Close()
			})

			It("should return error in JSON", func() {
				resp := postReceipt("receipt.jpg")
				defer resp.Body.Close()
				var response map[string]string
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response["error"]).To(ContainSubstring("receipt interpretation failed"))
			})
		})
	})

	Describe("handleGetBill", func() {
		When("bill exists", func() {
			BeforeEach(func() {
				db.bills["test-id"] = parsedBill("test-id")
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the bill with decimals as JSON numbers", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				var response map[string]json.RawMessage
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(string(response["total"])).To(Equal("10.21"))
			})
		})

		When("bill does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/nonexistent")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleAssign", func() {
		var requestBody map[string]any

		BeforeEach(func() {
			db.bills["test-id"] = parsedBill("test-id")
			requestBody = map[string]any{
				"assignments": []map[string]any{
					{"item_id": 0, "assigned_to": []string{"Alice"}},
					{"item_id": 1, "assigned_to": []string{"Alice", "Bob"}},
				},
				"people": []string{"Alice", "Bob"},
			}
		})

		postAssign := func() *http.Response {
			bodyBytes, _ := json.Marshal(requestBody)
			resp, err := http.Post(ghttpServer.URL()+"/api/bills/test-id/assign", "application/json", bytes.NewBuffer(bodyBytes))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("assignment succeeds", func() {
			It("should return status OK", func() {
				resp := postAssign()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the splits keyed by person", func() {
				resp := postAssign()
				defer resp.Body.Close()
				var response struct {
					Splits map[string]*split.Detail `json:"splits"`
				}
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response.Splits).To(HaveKey("Alice"))
				Expect(response.Splits).To(HaveKey("Bob"))
				Expect(response.Splits["Alice"].TotalDue.Equal(money("7.34"))).To(BeTrue())
			})
		})

		When("a tip override is included", func() {
			BeforeEach(func() {
				requestBody["tip"] = 5.00
			})

			It("should split with the overridden tip", func() {
				resp := postAssign()
				defer resp.Body.Close()
				var response struct {
					Splits map[string]*split.Detail `json:"splits"`
				}
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response.Splits["Alice"].TipShare.Equal(money("3.59375"))).To(BeTrue())
			})
		})

		When("the people list is empty", func() {
			BeforeEach(func() {
				requestBody["people"] = []string{}
			})

			It("should return status Bad Request", func() {
				resp := postAssign()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("invalid JSON body", func() {
			It("should return status Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/bills/test-id/assign", "application/json", bytes.NewBufferString("invalid json"))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("bill does not exist", func() {
			It("should return status Not Found", func() {
				bodyBytes, _ := json.Marshal(requestBody)
				resp, err := http.Post(ghttpServer.URL()+"/api/bills/nonexistent/assign", "application/json", bytes.NewBuffer(bodyBytes))
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleTogglePaid", func() {
		postToggle := func(billID, person string) *http.Response {
			bodyBytes, _ := json.Marshal(map[string]string{"person": person})
			resp, err := http.Post(ghttpServer.URL()+"/api/bills/"+billID+"/toggle-paid", "application/json", bytes.NewBuffer(bodyBytes))
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the person has a split", func() {
			BeforeEach(func() {
				db.bills["test-id"] = assignedBill("test-id")
			})

			It("should return status OK", func() {
				resp := postToggle("test-id", "Alice")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the updated splits", func() {
				resp := postToggle("test-id", "Alice")
				defer resp.Body.Close()
				var response struct {
					Splits map[string]*split.Detail `json:"splits"`
				}
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &response)).NotTo(HaveOccurred())
				Expect(response.Splits["Alice"].Paid).To(BeTrue())
			})
		})

		When("the bill has no splits yet", func() {
			BeforeEach(func() {
				db.bills["test-id"] = parsedBill("test-id")
			})

			It("should return status Not Found", func() {
				resp := postToggle("test-id", "Alice")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handlePaymentLinks", func() {
		When("the bill is assigned", func() {
			BeforeEach(func() {
				db.bills["test-id"] = assignedBill("test-id")
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/payment-links?organizer_venmo=organizer&organizer_name=Alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the payment summary", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/payment-links?organizer_venmo=organizer&organizer_name=Alice")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var summary PaymentSummary
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &summary)).NotTo(HaveOccurred())
				Expect(summary.PaymentLinks).To(HaveLen(1))
				Expect(summary.PaymentLinks[0].Person).To(Equal("Bob"))
				Expect(summary.MyTotal.Equal(money("7.34"))).To(BeTrue())
			})
		})

		When("the bill has not been assigned yet", func() {
			BeforeEach(func() {
				db.bills["test-id"] = parsedBill("test-id")
			})

			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/payment-links?organizer_venmo=organizer")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the organizer handle is missing", func() {
			BeforeEach(func() {
				db.bills["test-id"] = assignedBill("test-id")
			})

			It("should return status Bad Request", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/payment-links")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleBillImage", func() {
		When("bill and image exist", func() {
			BeforeEach(func() {
				bill := parsedBill("test-id")
				bill.ImageContentType = "image/jpeg"
				db.bills["test-id"] = bill
				storage.files["bill-1_receipt.jpg"] = []byte("file content")
			})

			It("should return the image with its content type", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/test-id/image")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("file content"))
			})
		})

		When("bill does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/bills/nonexistent/image")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleDeleteBill", func() {
		BeforeEach(func() {
			db.bills["test-id"] = parsedBill("test-id")
			storage.files["bill-1_receipt.jpg"] = []byte("data")
		})

		It("should return status No Content", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/bills/test-id", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
		})

		It("should remove the bill from the database", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/bills/test-id", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			_, getErr := service.GetBill("test-id")
			Expect(getErr).To(HaveOccurred())
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS requests with No Content", func() {
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/api/bills/test-id", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).NotTo(BeEmpty())
			resp.Body.Close()
		})
	})
})
